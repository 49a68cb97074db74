package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws/attempts?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readNext(conn *websocket.Conn, t *testing.T) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}

// waitFor reads messages until one of the wanted type arrives. Event
// ordering between the initial state snapshot and "started" is not
// guaranteed, so tests select by type instead of position.
func waitFor(conn *websocket.Conn, t *testing.T, want string) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		typ, payload := readNext(conn, t)
		if typ == want {
			return payload
		}
	}
	t.Fatalf("never received %q", want)
	return nil
}

func TestWebSocketAnswerAndSubmitFlow(t *testing.T) {
	server := newTestServer(t, nil)
	conn := dialWS(t, server, "quizId=quiz-1&studentId=s1")

	started := waitFor(conn, t, "started")
	if started["id"] == nil || started["status"] != "in_progress" {
		t.Fatalf("unexpected started payload: %+v", started)
	}

	if err := conn.WriteJSON(map[string]any{
		"type":    "answer",
		"payload": map[string]any{"questionId": "q1", "answer": "4"},
	}); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	status := waitFor(conn, t, "saveStatus")
	if status["status"] != "saving" && status["status"] != "saved" {
		t.Fatalf("unexpected save status: %+v", status)
	}

	if err := conn.WriteJSON(map[string]any{
		"type":    "navigate",
		"payload": map[string]any{"direction": "next"},
	}); err != nil {
		t.Fatalf("write navigate: %v", err)
	}
	position := waitFor(conn, t, "position")
	if position["index"] != float64(1) {
		t.Fatalf("expected index 1, got %+v", position)
	}

	if err := conn.WriteJSON(map[string]any{"type": "submit"}); err != nil {
		t.Fatalf("write submit: %v", err)
	}
	result := waitFor(conn, t, "submitted")
	if result["score"] != float64(5) || result["totalPoints"] != float64(15) {
		t.Fatalf("unexpected result payload: %+v", result)
	}
}

func TestWebSocketRejectsBadMessages(t *testing.T) {
	server := newTestServer(t, nil)
	conn := dialWS(t, server, "quizId=quiz-1&studentId=s1")

	waitFor(conn, t, "started")

	if err := conn.WriteJSON(map[string]any{"type": "bogus"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	errPayload := waitFor(conn, t, "error")
	if errPayload["message"] == "" {
		t.Fatalf("expected error message")
	}

	if err := conn.WriteJSON(map[string]any{
		"type":    "navigate",
		"payload": map[string]any{"direction": "sideways"},
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(conn, t, "error")

	if err := conn.WriteJSON(map[string]any{
		"type":    "answer",
		"payload": map[string]any{"questionId": "nope", "answer": "x"},
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(conn, t, "error")
}

func TestWebSocketRequiresIdentity(t *testing.T) {
	server := newTestServer(t, nil)

	u := "ws" + server.URL[len("http"):] + "/ws/attempts?quizId=quiz-1"
	if _, _, err := websocket.DefaultDialer.Dial(u, nil); err == nil {
		t.Fatalf("expected handshake rejection without studentId")
	}
}

func TestWebSocketReportsUnknownQuiz(t *testing.T) {
	server := newTestServer(t, nil)
	conn := dialWS(t, server, "quizId=missing&studentId=s1")

	payload := waitFor(conn, t, "error")
	if payload["message"] == "" {
		t.Fatalf("expected error payload")
	}
}
