// Package httpapi exposes the tutoring workflow over REST.
package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mathtutor-ai/mathtutor/pkg/llm"
)

// Asker runs one tutoring request and returns the final answer.
type Asker interface {
	Ask(ctx context.Context, threadID, query string) (string, error)
	AskImage(ctx context.Context, threadID, query, mime string, image []byte) (string, error)
}

// Server handles the REST endpoints. The /questions endpoint uses the LLM a
// second time to convert the workflow's prose quiz into strict JSON.
type Server struct {
	workflow    Asker
	llm         llm.Client
	formatModel string
	logger      *slog.Logger
}

// NewServer builds the HTTP server around a workflow.
func NewServer(workflow Asker, client llm.Client, formatModel string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{workflow: workflow, llm: client, formatModel: formatModel, logger: logger}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /questions", s.handleQuestions)
	mux.HandleFunc("POST /qna", s.handleQnA)
	mux.HandleFunc("POST /qna/image", s.handleQnAImage)
	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

// QuestionRequest describes a quiz to generate.
type QuestionRequest struct {
	Topics       string `json:"topics"`
	Range        string `json:"range,omitempty"`
	Summarized   string `json:"summarized,omitempty"`
	Difficulty   string `json:"difficulty,omitempty"`
	QuizExamples string `json:"quiz_examples,omitempty"`
}

// QuestionResponse is a multiple-choice quiz question.
type QuestionResponse struct {
	Question string `json:"question"`
	Choice1  string `json:"choice1"`
	Choice2  string `json:"choice2"`
	Choice3  string `json:"choice3"`
	Choice4  string `json:"choice4"`
	Choice5  string `json:"choice5"`
	Answer   int    `json:"answer"`
	Solution string `json:"solution"`
}

// codeFence strips a Markdown code fence the formatting model sometimes
// wraps its JSON in.
var codeFence = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

const formatSystemPrompt = `Convert the quiz question below into a single JSON object with exactly these
keys: "question", "choice1", "choice2", "choice3", "choice4", "choice5",
"answer" (the number of the correct choice, 1 to 5), "solution".
Preserve all mathematical notation, including $...$ and $$...$$, verbatim.
Output only the JSON object.`

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	var req QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Topics == "" {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("topics is required"))
		return
	}

	var q strings.Builder
	fmt.Fprintf(&q, "Create one multiple-choice quiz question with five choices about %s.", req.Topics)
	if req.Range != "" {
		fmt.Fprintf(&q, " Limit the scope to: %s.", req.Range)
	}
	if req.Summarized != "" {
		fmt.Fprintf(&q, " Lecture summary for context: %s", req.Summarized)
	}
	if req.Difficulty != "" {
		fmt.Fprintf(&q, " Difficulty: %s.", req.Difficulty)
	}
	if req.QuizExamples != "" {
		fmt.Fprintf(&q, " Style examples: %s", req.QuizExamples)
	}

	// Each quiz request is its own thread: quiz generation does not share
	// conversational history.
	raw, err := s.workflow.Ask(r.Context(), "questions-"+uuid.NewString(), q.String())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}

	out, err := s.llm.Generate(r.Context(), llm.Request{
		Model:       s.formatModel,
		Temperature: 0,
		System:      formatSystemPrompt,
		Parts:       []llm.Part{llm.Text(raw)},
	})
	if err != nil {
		s.fail(w, http.StatusInternalServerError, fmt.Errorf("format quiz: %w", err))
		return
	}

	cleaned := strings.TrimSpace(out)
	if m := codeFence.FindStringSubmatch(cleaned); m != nil {
		cleaned = m[1]
	}

	var resp QuestionResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		s.fail(w, http.StatusInternalServerError, fmt.Errorf("parse formatted quiz: %w", err))
		return
	}
	s.writeJSON(w, http.StatusCreated, resp)
}

// QnARequest is a free-form tutoring question.
type QnARequest struct {
	Query    string `json:"query"`
	ThreadID string `json:"thread_id,omitempty"`
}

// QnAImageRequest is a tutoring question with a photographed problem.
type QnAImageRequest struct {
	Query    string `json:"query"`
	ThreadID string `json:"thread_id,omitempty"`
	Image    string `json:"image"`
	MIMEType string `json:"mime_type"`
}

// QnAResponse carries the assistant's answer.
type QnAResponse struct {
	Answer   string `json:"answer"`
	ThreadID string `json:"thread_id"`
}

func (s *Server) handleQnA(w http.ResponseWriter, r *http.Request) {
	var req QnARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Query == "" {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("query is required"))
		return
	}
	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	answer, err := s.workflow.Ask(r.Context(), threadID, req.Query)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, QnAResponse{Answer: answer, ThreadID: threadID})
}

func (s *Server) handleQnAImage(w http.ResponseWriter, r *http.Request) {
	var req QnAImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Image == "" {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("image is required"))
		return
	}
	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("decode image: %w", err))
		return
	}
	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}
	query := req.Query
	if query == "" {
		query = "Solve the problem in the attached image step by step."
	}

	answer, err := s.workflow.AskImage(r.Context(), threadID, query, req.MIMEType, image)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, QnAResponse{Answer: answer, ThreadID: threadID})
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		s.logger.Error("request failed", "error", err)
	} else {
		s.logger.Warn("request rejected", "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}
