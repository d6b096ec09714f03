package handlers

import (
	"net/http"

	"github.com/Manjussha/insightlab/internal/share"
	"github.com/Manjussha/insightlab/internal/tokenizer"
	"github.com/Manjussha/insightlab/internal/ws"
)

type textRequest struct {
	Text string `json:"text"`
}

type simulation struct {
	Text   string             `json:"text"`
	Seed   int64              `json:"seed"`
	Tokens tokenizer.Sequence `json:"tokens"`
}

// Tokenize handles POST /api/v1/tokenize.
func (h *Handler) Tokenize(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	ok(w, map[string][]string{"tokens": tokenizer.Tokenize(req.Text)})
}

// Simulate handles POST /api/v1/simulate.
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	ok(w, h.simulate(req.Text))
}

// SimulateShared handles GET /api/v1/simulate?p=... so that share links
// reproduce the same visualization.
func (h *Handler) SimulateShared(w http.ResponseWriter, r *http.Request) {
	prompt, err := share.Decode(r.URL.RawQuery)
	if err != nil {
		fail(w, http.StatusBadRequest, "invalid query")
		return
	}
	ok(w, h.simulate(prompt))
}

func (h *Handler) simulate(text string) simulation {
	sim := simulation{Text: text, Seed: tokenizer.Seed(text), Tokens: tokenizer.Simulate(text)}
	if h.metrics != nil {
		h.metrics.RecordSimulation()
	}
	if h.hub != nil {
		h.hub.Broadcast(ws.TypeSimulation, sim)
	}
	return sim
}

// Share handles GET /api/v1/share?p=...&base=...
// Without base the link points at this server's root.
func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	base := q.Get("base")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host + "/"
	}
	link, err := share.Encode(base, q.Get(share.Param))
	if err != nil {
		fail(w, http.StatusBadRequest, "invalid base url")
		return
	}
	ok(w, map[string]string{"url": link})
}
