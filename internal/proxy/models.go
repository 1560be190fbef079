package proxy

import (
	"net/http"

	"github.com/claudewire/claudewire/internal/openaiadapter/anthropicclaude"
	"github.com/claudewire/claudewire/internal/openaiadapter/types"
)

// modelsHandler serves the model listing from the adapter's registry: each
// base model plus its reasoning variants. The upstream /v1/models endpoint
// doesn't support OAuth authentication, so the listing is generated locally
// to enable model selection in clients.
func modelsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listing := types.ModelList{
			Object: "list",
			Data:   anthropicclaude.Models(),
		}
		writeJSON(r.Context(), w, listing, http.StatusOK)
	}
}
