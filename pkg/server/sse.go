package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// sseFrame wraps an already-marshaled JSON payload in the "data: ...\n\n"
// framing the SSE wire format requires.
func sseFrame(data []byte) []byte {
	return []byte(fmt.Sprintf("data: %s\n\n", data))
}

// writeSSE marshals e and writes it as one SSE frame.
func writeSSE(w http.ResponseWriter, e event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = w.Write(sseFrame(data))
	return err
}
