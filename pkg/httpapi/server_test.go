package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathtutor-ai/mathtutor/pkg/llm"
)

// fakeWorkflow records calls and returns a canned answer.
type fakeWorkflow struct {
	answer    string
	err       error
	lastQuery string
	lastMIME  string
	lastImage []byte
}

func (f *fakeWorkflow) Ask(_ context.Context, _, query string) (string, error) {
	f.lastQuery = query
	return f.answer, f.err
}

func (f *fakeWorkflow) AskImage(_ context.Context, _, query, mime string, image []byte) (string, error) {
	f.lastQuery = query
	f.lastMIME = mime
	f.lastImage = image
	return f.answer, f.err
}

// fakeFormatter returns a fixed Generate output.
type fakeFormatter struct {
	output string
	err    error
}

func (f *fakeFormatter) Generate(_ context.Context, _ llm.Request) (string, error) {
	return f.output, f.err
}

func (f *fakeFormatter) GenerateEnum(_ context.Context, _ llm.Request, _ string, _ []string) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeFormatter) Embed(_ context.Context, _, _ string) ([]float32, error) {
	return nil, errors.New("not used")
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleQnA(t *testing.T) {
	wf := &fakeWorkflow{answer: "the derivative is $2x$"}
	h := NewServer(wf, &fakeFormatter{}, "model", nil).Handler()

	rec := postJSON(t, h, "/qna", QnARequest{Query: "differentiate x^2"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp QnAResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "the derivative is $2x$", resp.Answer)
	assert.NotEmpty(t, resp.ThreadID)
	assert.Equal(t, "differentiate x^2", wf.lastQuery)
}

func TestHandleQnA_KeepsThreadID(t *testing.T) {
	wf := &fakeWorkflow{answer: "ok"}
	h := NewServer(wf, &fakeFormatter{}, "model", nil).Handler()

	rec := postJSON(t, h, "/qna", QnARequest{Query: "q", ThreadID: "my-thread"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp QnAResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "my-thread", resp.ThreadID)
}

func TestHandleQnA_MissingQuery(t *testing.T) {
	h := NewServer(&fakeWorkflow{}, &fakeFormatter{}, "model", nil).Handler()

	rec := postJSON(t, h, "/qna", QnARequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQnA_WorkflowError(t *testing.T) {
	wf := &fakeWorkflow{err: errors.New("routing went sideways")}
	h := NewServer(wf, &fakeFormatter{}, "model", nil).Handler()

	rec := postJSON(t, h, "/qna", QnARequest{Query: "q"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "routing went sideways")
}

func TestHandleQnAImage(t *testing.T) {
	wf := &fakeWorkflow{answer: "solved"}
	h := NewServer(wf, &fakeFormatter{}, "model", nil).Handler()

	image := []byte{0x89, 0x50, 0x4e, 0x47}
	rec := postJSON(t, h, "/qna/image", QnAImageRequest{
		Query:    "solve this",
		Image:    base64.StdEncoding.EncodeToString(image),
		MIMEType: "image/png",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, image, wf.lastImage)
	assert.Equal(t, "image/png", wf.lastMIME)
}

func TestHandleQnAImage_BadBase64(t *testing.T) {
	h := NewServer(&fakeWorkflow{}, &fakeFormatter{}, "model", nil).Handler()

	rec := postJSON(t, h, "/qna/image", QnAImageRequest{Query: "q", Image: "not base64!!"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQuestions(t *testing.T) {
	quiz := QuestionResponse{
		Question: "What is $\\int 2x\\,dx$?",
		Choice1:  "$x^2 + C$",
		Choice2:  "$2x^2 + C$",
		Choice3:  "$x + C$",
		Choice4:  "$2 + C$",
		Choice5:  "$x^2$",
		Answer:   1,
		Solution: "The antiderivative of $2x$ is $x^2 + C$.",
	}
	quizJSON, err := json.Marshal(quiz)
	require.NoError(t, err)

	wf := &fakeWorkflow{answer: "prose quiz"}
	formatter := &fakeFormatter{output: string(quizJSON)}
	h := NewServer(wf, formatter, "model", nil).Handler()

	rec := postJSON(t, h, "/questions", QuestionRequest{Topics: "integration", Difficulty: "basic"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp QuestionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, quiz, resp)
	assert.Contains(t, wf.lastQuery, "integration")
	assert.Contains(t, wf.lastQuery, "basic")
}

func TestHandleQuestions_StripsCodeFence(t *testing.T) {
	wf := &fakeWorkflow{answer: "prose quiz"}
	formatter := &fakeFormatter{output: "```json\n" +
		`{"question":"q","choice1":"a","choice2":"b","choice3":"c","choice4":"d","choice5":"e","answer":2,"solution":"s"}` +
		"\n```"}
	h := NewServer(wf, formatter, "model", nil).Handler()

	rec := postJSON(t, h, "/questions", QuestionRequest{Topics: "limits"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp QuestionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Answer)
}

func TestHandleQuestions_WireFieldNames(t *testing.T) {
	wf := &fakeWorkflow{answer: "prose quiz"}
	formatter := &fakeFormatter{output: `{"question":"q","answer":1,"solution":"s"}`}
	h := NewServer(wf, formatter, "model", nil).Handler()

	// Field names match the deployed JSON contract.
	rec := postJSON(t, h, "/questions", map[string]string{
		"topics":     "limits of functions",
		"range":      "2.2 The Limit of Functions",
		"summarized": "one-sided and infinite limits",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, wf.lastQuery, "limits of functions")
	assert.Contains(t, wf.lastQuery, "one-sided and infinite limits")
}

func TestHandleQuestions_MissingTopic(t *testing.T) {
	h := NewServer(&fakeWorkflow{}, &fakeFormatter{}, "model", nil).Handler()

	rec := postJSON(t, h, "/questions", QuestionRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQuestions_MalformedModelJSON(t *testing.T) {
	wf := &fakeWorkflow{answer: "prose quiz"}
	formatter := &fakeFormatter{output: "this is not json"}
	h := NewServer(wf, formatter, "model", nil).Handler()

	rec := postJSON(t, h, "/questions", QuestionRequest{Topics: "series"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
