/*
Package streaming delivers finished conversion outputs to HTTP clients
without letting a stalled client pin a handler goroutine.

Each chunk is written under its own write deadline set through
http.ResponseController, so a client that stops reading is dropped after
WriteTimeout rather than holding the connection until the server-wide
WriteTimeout. Writers that do not support deadlines, such as
httptest.ResponseRecorder, are written to without one.

	err := streaming.ServeFile(r.Context(), w, status.OutputPath, "video/quicktime", streaming.DefaultConfig())
	if err != nil && !errors.Is(err, streaming.ErrClientGone) {
		logging.Warn("Download failed: %v", err)
	}
*/
package streaming
