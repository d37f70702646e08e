package sgp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// autocompleteServer records the tconsulta values it saw and answers from a
// per-tconsulta canned body.
func autocompleteServer(t *testing.T, responses map[string]string) (*httptest.Server, *[]string) {
	t.Helper()
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/public/autocomplete/ClienteAutocomplete" {
			t.Errorf("search path = %q", r.URL.Path)
		}
		tconsulta := r.URL.Query().Get("tconsulta")
		seen = append(seen, tconsulta)
		body, ok := responses[tconsulta]
		if !ok {
			body = `[]`
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestResolveStopsAtFirstHit(t *testing.T) {
	srv, seen := autocompleteServer(t, map[string]string{
		"cpfcnpj": `[{"id": 42, "label": "JOAO SILVA - 123.456.789-00"}]`,
	})

	r := NewResolver(srv.Client())
	client, err := r.Resolve(context.Background(), srv.URL, ClientIdentifier{
		CpfCnpj:     "123.456.789-00",
		FullName:    "Joao Silva",
		PhoneNumber: "+55 11 91234-5678",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if client == nil {
		t.Fatal("Resolve() = nil; want a hit")
	}
	if client.ID != "42" {
		t.Fatalf("client id = %q; want %q", client.ID, "42")
	}
	if len(*seen) != 1 || (*seen)[0] != "cpfcnpj" {
		t.Fatalf("searches = %v; want exactly one cpfcnpj lookup", *seen)
	}
}

func TestResolveFallsThroughInOrder(t *testing.T) {
	srv, seen := autocompleteServer(t, map[string]string{
		"telefone": `[{"id": "7", "label": "MARIA SOUZA - plano fibra"}]`,
	})

	r := NewResolver(srv.Client())
	client, err := r.Resolve(context.Background(), srv.URL, ClientIdentifier{
		CpfCnpj:     "000.000.000-00",
		FullName:    "Maria Souza",
		PhoneNumber: "(11) 91234-5678",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if client == nil || client.ID != "7" {
		t.Fatalf("client = %+v; want id 7 from the phone strategy", client)
	}

	want := []string{"cpfcnpj", "nome", "telefone"}
	if len(*seen) != len(want) {
		t.Fatalf("searches = %v; want %v", *seen, want)
	}
	for i, tconsulta := range want {
		if (*seen)[i] != tconsulta {
			t.Fatalf("search %d = %q; want %q", i, (*seen)[i], tconsulta)
		}
	}
}

func TestResolveSkipsAbsentIdentifiers(t *testing.T) {
	srv, seen := autocompleteServer(t, nil)

	r := NewResolver(srv.Client())
	client, err := r.Resolve(context.Background(), srv.URL, ClientIdentifier{FullName: "Jose Santos"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if client != nil {
		t.Fatalf("client = %+v; want nil on an all-miss", client)
	}
	if len(*seen) != 1 || (*seen)[0] != "nome" {
		t.Fatalf("searches = %v; want only the name lookup", *seen)
	}
}

func TestResolveSwallowsStrategyErrors(t *testing.T) {
	srv, seen := autocompleteServer(t, map[string]string{
		"cpfcnpj": `not json`,
		"nome":    `[{"id": "9", "label": "CARLOS LIMA - centro"}]`,
	})

	r := NewResolver(srv.Client())
	client, err := r.Resolve(context.Background(), srv.URL, ClientIdentifier{
		CpfCnpj:  "111.222.333-44",
		FullName: "Carlos Lima",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v; partial failures should be swallowed", err)
	}
	if client == nil || client.ID != "9" {
		t.Fatalf("client = %+v; want the name hit after the broken document lookup", client)
	}
	if len(*seen) != 2 {
		t.Fatalf("searches = %v; want both strategies tried", *seen)
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+55 11 91234-5678", "11912345678"},
		{"5511912345678", "11912345678"},
		{"(11) 91234-5678", "11912345678"},
		{"5581", "5581"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizePhone(tc.in); got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}
