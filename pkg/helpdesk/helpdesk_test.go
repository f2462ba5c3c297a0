package helpdesk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateTicketPostsRecord(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		fmt.Fprint(w, `{"id":"tk-42"}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL, Token: "secret", WebhookSecret: "s"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	ticket, err := client.CreateTicket(context.Background(), "5215550001111", "¿Cuántos empleados?")
	if err != nil {
		t.Fatalf("CreateTicket() error = %v", err)
	}

	if ticket.ID != "tk-42" {
		t.Fatalf("ticket id = %q", ticket.ID)
	}
	if ticket.CorrelationID == "" {
		t.Fatal("correlation id must be backfilled from the request")
	}
	if gotPath != "/tickets" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotBody["phone"] != "5215550001111" || gotBody["question"] != "¿Cuántos empleados?" {
		t.Fatalf("unexpected payload: %#v", gotBody)
	}
	if gotBody["answer"] != "" {
		t.Fatalf("ticket must open with an empty answer, got %v", gotBody["answer"])
	}
	if gotBody["correlation_id"] == "" {
		t.Fatal("correlation id missing from payload")
	}
}

func TestCreateTicketRejectsServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"boom"}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL, Token: "secret", WebhookSecret: "s"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := client.CreateTicket(context.Background(), "521", "pregunta"); err == nil {
		t.Fatal("5xx must be an error")
	}
}

func TestCreateTicketRequiresTicketID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL, Token: "secret", WebhookSecret: "s"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := client.CreateTicket(context.Background(), "521", "pregunta"); err == nil {
		t.Fatal("response without id must be an error")
	}
}

func TestAnswerPayloadUnmarshal(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "answer", body: `{"answer": "hola", "phone": "521"}`, want: "hola"},
		{name: "respuesta", body: `{"respuesta": "hola"}`, want: "hola"},
		{name: "resolution", body: `{"resolution": "hola"}`, want: "hola"},
		{name: "missing", body: `{"phone": "521"}`, want: ""},
		{name: "non-string answer", body: `{"answer": 42}`, want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var p AnswerPayload
			if err := json.Unmarshal([]byte(tc.body), &p); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if p.Answer != tc.want {
				t.Fatalf("Answer = %q, want %q", p.Answer, tc.want)
			}
		})
	}
}

func TestAnswerPayloadStringFields(t *testing.T) {
	t.Parallel()

	var p AnswerPayload
	body := `{"answer": "hola", "phone": "521", "priority": 3, "meta": {"k": "v"}}`
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if v, ok := p.StringField("phone"); !ok || v != "521" {
		t.Fatalf("StringField(phone) = %q, %v", v, ok)
	}
	if _, ok := p.StringField("priority"); ok {
		t.Fatal("numeric field must not decode as string")
	}

	fields := p.StringFields()
	if len(fields) != 2 {
		t.Fatalf("expected answer and phone only, got %v", fields)
	}
}
