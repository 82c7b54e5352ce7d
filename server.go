package main

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
	qrcode "github.com/skip2/go-qrcode"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write json response", "err", err)
	}
}

func queryInt(r *http.Request, key string, def, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// SetupRoutes configures HTTP routes. clientDir may be empty to skip the
// static client.
func SetupRoutes(hub *Hub, clientDir string) *http.ServeMux {
	mux := http.NewServeMux()

	if clientDir != "" {
		// Serve static files with no-cache so browsers always revalidate
		fs := http.FileServer(http.Dir(clientDir))
		mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")
			fs.ServeHTTP(w, r)
		}))
	}

	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("upgrade error", "addr", ip, "err", err)
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip)
		select {
		case hub.register <- client:
		case <-hub.done:
			hub.TrackDisconnect(ip)
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]int{
			"rooms":   hub.rooms.Count(),
			"clients": hub.ClientCount(),
		})
	})

	mux.HandleFunc("/api/rooms", hub.auth.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, hub.rooms.ListRooms())
	}))

	mux.HandleFunc("/api/matches", hub.auth.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		if hub.db == nil {
			http.Error(w, "match archive disabled", http.StatusServiceUnavailable)
			return
		}
		matches, err := hub.db.RecentMatches(queryInt(r, "limit", 20, 200))
		if err != nil {
			slog.Error("list matches", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if matches == nil {
			matches = []MatchSummary{}
		}
		writeJSON(w, matches)
	}))

	mux.HandleFunc("/api/events", hub.auth.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		counts, err := hub.analytics.EventCounts(queryInt(r, "days", 7, 365))
		if err != nil {
			slog.Error("count events", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, counts)
	}))

	// QR code pointing phones at the client
	mux.HandleFunc("/qr", func(w http.ResponseWriter, r *http.Request) {
		target := hub.publicURL
		if target == "" {
			target = "http://" + r.Host + "/"
		}
		png, err := qrcode.Encode(target, qrcode.Medium, 256)
		if err != nil {
			http.Error(w, "qr encode failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(png)
	})

	return mux
}
