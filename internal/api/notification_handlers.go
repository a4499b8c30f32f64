package api

import (
	"net/http"

	"github.com/hackgods/careslot/internal/notification"
)

func listNotificationsHandler(store notification.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := uuidParam(w, r, "userID")
		if !ok {
			return
		}

		list, err := store.ListByUser(r.Context(), userID, notification.ListOptions{
			UnreadOnly: r.URL.Query().Get("unread") == "true",
			Limit:      intQuery(r, "limit"),
			Offset:     intQuery(r, "offset"),
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, NotificationListResponse{Notifications: list})
	}
}

func unreadCountHandler(store notification.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := uuidParam(w, r, "userID")
		if !ok {
			return
		}

		count, err := store.UnreadCount(r.Context(), userID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, UnreadCountResponse{Count: count})
	}
}

func markAllReadHandler(store notification.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := uuidParam(w, r, "userID")
		if !ok {
			return
		}

		updated, err := store.MarkAllRead(r.Context(), userID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, MarkAllReadResponse{Updated: updated})
	}
}

func markReadHandler(store notification.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		n, err := store.MarkRead(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, n)
	}
}

func toggleReadHandler(store notification.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		n, err := store.ToggleRead(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, n)
	}
}

func deleteNotificationHandler(store notification.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		if err := store.Delete(r.Context(), id); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
