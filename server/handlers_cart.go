package server

import (
	"net/http"

	"github.com/jrsteele09/motzkin-store/cart"
)

func (s *Server) CartListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := sessionFromContext(r.Context())
		entries, err := s.repos.Carts.List(session.UserID)
		if err != nil {
			s.log.Error().Err(err).Msg("list cart")
			writeError(w, http.StatusInternalServerError, "Failed to fetch cart")
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func (s *Server) CartAddHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := sessionFromContext(r.Context())

		var entry cart.Entry
		if err := decodeJSON(r, &entry); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if entry.School.ID == 0 || entry.Grade.ID == 0 {
			writeError(w, http.StatusBadRequest, "School and grade are required")
			return
		}
		for _, it := range entry.Items {
			if it.Quantity < 0 {
				writeError(w, http.StatusBadRequest, "Quantities must not be negative")
				return
			}
		}

		saved, err := s.repos.Carts.Add(session.UserID, entry)
		if err != nil {
			s.log.Error().Err(err).Msg("add cart entry")
			writeError(w, http.StatusInternalServerError, "Failed to add to cart")
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

func (s *Server) CartRemoveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := sessionFromContext(r.Context())
		id := r.PathValue("id")

		removed, err := s.repos.Carts.Remove(session.UserID, id)
		if err != nil {
			s.log.Error().Err(err).Msg("remove cart entry")
			writeError(w, http.StatusInternalServerError, "Failed to remove from cart")
			return
		}
		if !removed {
			writeError(w, http.StatusNotFound, "Cart entry not found")
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "Removed"})
	}
}

func (s *Server) CartClearHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := sessionFromContext(r.Context())
		if err := s.repos.Carts.Clear(session.UserID); err != nil {
			s.log.Error().Err(err).Msg("clear cart")
			writeError(w, http.StatusInternalServerError, "Failed to clear cart")
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "Cart cleared"})
	}
}
