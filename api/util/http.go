package util

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

type Result struct {
	Ok     bool         `json:"ok"`
	Err    *string      `json:"error,omitempty"`
	Result *interface{} `json:"result,omitempty"`
}

func write(w http.ResponseWriter, statusCode int, result interface{}) {
	data, err := json.Marshal(result)
	if err != nil {
		log.Error().Err(err).Msg("marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, http.StatusText(http.StatusInternalServerError))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(data)
}

func WriteOK(w http.ResponseWriter) {
	write(w, http.StatusOK, &Result{Ok: true})
}

func WriteError(w http.ResponseWriter, statusCode int, errorMessage string) {
	write(w, statusCode, &Result{
		Ok:  false,
		Err: &errorMessage,
	})
}

func WriteJson(w http.ResponseWriter, res interface{}) {
	WriteJsonStatus(w, http.StatusOK, res)
}

func WriteJsonStatus(w http.ResponseWriter, statusCode int, res interface{}) {
	write(w, statusCode, &Result{
		Ok:     true,
		Result: &res,
	})
}

func WriteStatus(w http.ResponseWriter, statusCode int) {
	WriteError(w, statusCode, http.StatusText(statusCode))
}

func WriteUnauthorized(w http.ResponseWriter) {
	WriteStatus(w, http.StatusUnauthorized)
}

func WriteInternalServerError(w http.ResponseWriter) {
	WriteStatus(w, http.StatusInternalServerError)
}

func GetUrlQueryParam(r *http.Request, key string) string {
	keys, ok := r.URL.Query()[key]

	if !ok || len(keys[0]) < 1 {
		return ""
	}

	return keys[0]
}
