package stub

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func NewRouter(svc *service, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(logger))
	r.Use(LoggingMiddleware(logger))

	r.Get("/health", healthHandler())
	r.Post("/upload", uploadHandler(svc))
	r.Post("/process", processHandler(svc))
	r.Get("/progress", progressHandler(svc))

	r.Handle("/outputs/*", http.StripPrefix("/outputs/",
		http.FileServer(http.Dir(svc.outputsDir))))

	return r
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func uploadHandler(svc *service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			WriteError(w, http.StatusBadRequest, "multipart field 'file' is required")
			return
		}
		defer file.Close()

		resp, err := svc.storeUpload(header.Filename, file)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

// processHandler blocks until the simulated job finishes, matching the real
// service's long-running POST /process.
func processHandler(svc *service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := r.URL.Query().Get("filename")
		if filename == "" {
			WriteError(w, http.StatusBadRequest, "filename is required")
			return
		}

		for _, param := range []string{"encoder", "input_size", "max_res", "target_fps"} {
			if r.URL.Query().Get(param) == "" {
				WriteError(w, http.StatusBadRequest, param+" is required")
				return
			}
		}

		downloads, err := svc.run(filename)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		WriteJSON(w, http.StatusOK, ProcessResponse{Downloads: downloads})
	}
}

func progressHandler(svc *service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, svc.progress())
	}
}
