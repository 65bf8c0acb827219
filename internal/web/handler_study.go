package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/tmcgee/sparkinv/internal/study"
)

func (s *Server) handleListCourses(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.study.Courses())
}

func (s *Server) handleModuleQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := s.study.ModuleQuestions(r.PathValue("course"), r.PathValue("module"))
	if err != nil {
		s.studyError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, questions)
}

func (s *Server) handleMockExam(w http.ResponseWriter, r *http.Request) {
	count := 0
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid count")
			return
		}
		count = n
	}

	exam, err := s.study.MockExam(r.PathValue("course"), count)
	if err != nil {
		s.studyError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, exam)
}

func (s *Server) handleScoreExam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers []study.Answer `json:"answers"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.study.Score(r.PathValue("course"), req.Answers)
	if err != nil {
		s.studyError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) studyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, study.ErrCourseNotFound), errors.Is(err, study.ErrModuleNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.writeError(w, http.StatusBadRequest, err.Error())
	}
}
