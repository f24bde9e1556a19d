package middleware

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/doorbash/stylize-services/api/util"
	"github.com/rs/zerolog/log"
)

const maxBodySize = 1 << 20

// JsonBodyMiddleware rejects requests whose body is not valid JSON and keeps
// the raw body in the request context.
func JsonBodyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
		if err != nil {
			log.Debug().Err(err).Msg("read body")
			util.WriteError(w, http.StatusBadRequest, "bad body")
			return
		}
		if len(data) > maxBodySize {
			util.WriteStatus(w, http.StatusRequestEntityTooLarge)
			return
		}
		if !json.Valid(data) {
			util.WriteError(w, http.StatusBadRequest, "bad json")
			return
		}
		ctx := r.Context()
		ctx = contextWithJson(ctx, json.RawMessage(data))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// JsonBody returns the body read by JsonBodyMiddleware.
func JsonBody(r *http.Request) json.RawMessage {
	data, _ := r.Context().Value(jsonContextKey).(json.RawMessage)
	return data
}

// JsonBodyMap decodes the body read by JsonBodyMiddleware as a JSON object.
func JsonBodyMap(r *http.Request) (map[string]interface{}, bool) {
	var body map[string]interface{}
	if err := json.Unmarshal(JsonBody(r), &body); err != nil || body == nil {
		return nil, false
	}
	return body, true
}
