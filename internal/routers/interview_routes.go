package routers

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"peerprep/interview/internal/handlers"
	"peerprep/interview/internal/middleware"
	"peerprep/interview/internal/models"
)

const requestTimeout = 60 * time.Second

func InterviewRoutes(router *chi.Mux, jwtSecret string, interviewHandler *handlers.InterviewHandler, documentHandler *handlers.DocumentHandler) {
	router.Route("/api/v1/interview", func(r chi.Router) {
		r.Use(middleware.Auth(jwtSecret))

		// long lived, so outside the request timeout
		r.Get("/sessions/{id}/ws", interviewHandler.LiveSessionHandler)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(requestTimeout))

			r.With(middleware.ValidateRequest[*models.CreateDocumentRequest]()).Post("/documents", documentHandler.CreateDocumentHandler)
			r.Get("/documents/{id}", documentHandler.GetDocumentHandler)

			r.Get("/sessions", interviewHandler.ListSessionsHandler)
			r.With(middleware.ValidateRequest[*models.StartSessionRequest]()).Post("/sessions", interviewHandler.StartSessionHandler)
			r.Get("/sessions/{id}", interviewHandler.GetSessionHandler)
			r.Get("/sessions/{id}/report", interviewHandler.ReportHandler)
			r.With(middleware.ValidateRequest[*models.SubmitAnswerRequest]()).Post("/sessions/{id}/answers", interviewHandler.SubmitAnswerHandler)
			r.With(middleware.ValidateRequest[*models.SubmitCodeRequest]()).Post("/sessions/{id}/code", interviewHandler.SubmitCodeHandler)
			r.Post("/sessions/{id}/skip", interviewHandler.SkipHandler)
			r.Post("/sessions/{id}/pause", interviewHandler.PauseHandler)
			r.Post("/sessions/{id}/resume", interviewHandler.ResumeHandler)
			r.Post("/sessions/{id}/end", interviewHandler.EndHandler)
			r.Post("/sessions/{id}/retry", interviewHandler.RetryHandler)
		})
	})
}
