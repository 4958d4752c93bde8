package handler

import (
	"net/http"

	"relaychat/internal/app/relay"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/resp"
)

// HandleGetMessages returns the message history of the fixed conversation.
// Read-only, no side effects.
func HandleGetMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messages, err := deps.Messages.History(r.Context(), relay.DefaultConversationID)
		if err != nil {
			logx.Error(err, "failed to fetch message history")
			resp.RespondError(w, r, errs.NewError(errs.ErrHistoryUnavailable))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"messages": messages,
		})
	}
}
