package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/patchgest/internal/parser"
	"github.com/dgallion1/patchgest/internal/patchdoc"
)

type parseRequest struct {
	HTML string `json:"html"`
	Text string `json:"text"`
}

type parseResponse struct {
	Blocks  []patchdoc.Block `json:"blocks"`
	Buckets patchdoc.Buckets `json:"buckets"`
}

// handleParse runs the parser over a submitted document without storing
// anything.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxParseBytes)

	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}

	res := parser.Parse(req.HTML, req.Text)
	writeJSON(w, http.StatusOK, toParseResponse(res))
}

func toParseResponse(res patchdoc.Result) parseResponse {
	out := parseResponse{Blocks: res.Blocks, Buckets: res.Buckets}
	if out.Blocks == nil {
		out.Blocks = []patchdoc.Block{}
	}
	if out.Buckets == nil {
		out.Buckets = patchdoc.Buckets{}
	}
	return out
}
