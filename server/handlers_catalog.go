package server

import (
	"net/http"
	"strconv"
)

type equipmentResponse struct {
	Items any `json:"items"`
}

func (s *Server) SchoolsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.repos.Catalog.Schools())
	}
}

func (s *Server) GradesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		schoolID, ok := queryInt(r, "school_id")
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid school_id")
			return
		}
		grades, ok := s.repos.Catalog.Grades(schoolID)
		if !ok {
			writeError(w, http.StatusNotFound, "School not found")
			return
		}
		writeJSON(w, http.StatusOK, grades)
	}
}

func (s *Server) EquipmentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		schoolID, ok := queryInt(r, "school_id")
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid school_id")
			return
		}
		gradeID, ok := queryInt(r, "grade_id")
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid grade_id")
			return
		}
		lines, ok := s.repos.Catalog.Equipment(schoolID, gradeID)
		if !ok {
			writeError(w, http.StatusNotFound, "Equipment not found")
			return
		}
		writeJSON(w, http.StatusOK, equipmentResponse{Items: lines})
	}
}

func queryInt(r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	return n, err == nil
}
