package transport

import (
	"encoding/json"
	"errors"
	"log"
	nethttp "net/http"
	"strings"
	"time"

	"gungame/server"
	"gungame/server/internal/telemetry"
)

type HTTPHandlerConfig struct {
	// ServerIP and UDPPort are the advertised data-plane endpoint included
	// in every lobby payload so clients know where to send datagrams.
	ServerIP string
	UDPPort  int
	// InstanceID distinguishes this process in diagnostics output across
	// restarts.
	InstanceID string
	Logger     telemetry.Logger
	Counters   *telemetry.Counters
	// WSHandler, when set, is mounted at GET /ws.
	WSHandler nethttp.Handler
}

type createLobbyRequest struct {
	Code       string `json:"code"`
	Scene      string `json:"scene"`
	MaxPlayers int    `json:"max_players"`
}

type joinLobbyRequest struct {
	PlayerName string `json:"player_name"`
}

// lobbyPayload is a LobbyInfo plus the advertised UDP endpoint.
type lobbyPayload struct {
	server.LobbyInfo
	ServerIP string `json:"server_ip"`
	UDPPort  int    `json:"udp_port"`
}

type joinLobbyResponse struct {
	Lobby    lobbyPayload    `json:"lobby"`
	PlayerID server.PlayerID `json:"player_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(hub *server.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}

	payload := func(info server.LobbyInfo) lobbyPayload {
		return lobbyPayload{LobbyInfo: info, ServerIP: cfg.ServerIP, UDPPort: cfg.UDPPort}
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("GET /health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		snap := hub.Diagnostics()
		writeJSON(w, nethttp.StatusOK, struct {
			Status        string            `json:"status"`
			InstanceID    string            `json:"instance_id"`
			ServerTime    int64             `json:"server_time"`
			UptimeSeconds int64             `json:"uptime_seconds"`
			Lobbies       int               `json:"lobbies"`
			Players       int               `json:"players"`
			Counters      map[string]uint64 `json:"counters"`
		}{
			Status:        "ok",
			InstanceID:    cfg.InstanceID,
			ServerTime:    time.Now().UnixMilli(),
			UptimeSeconds: int64(time.Since(snap.StartedAt).Seconds()),
			Lobbies:       snap.LobbyCount,
			Players:       snap.PlayerCount,
			Counters:      cfg.Counters.Snapshot(),
		})
	})

	mux.HandleFunc("POST /lobbies", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req createLobbyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, nethttp.StatusBadRequest, "invalid payload")
			return
		}
		if strings.TrimSpace(req.Code) == "" {
			writeError(w, nethttp.StatusBadRequest, "lobby code is required")
			return
		}
		if req.MaxPlayers <= 0 {
			writeError(w, nethttp.StatusBadRequest, "max_players must be positive")
			return
		}

		info, err := hub.CreateLobby(req.Code, req.Scene, req.MaxPlayers)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		logger.Printf("lobby %s created (scene=%s max_players=%d)", info.Code, info.Scene, info.MaxPlayers)
		writeJSON(w, nethttp.StatusOK, payload(info))
	})

	mux.HandleFunc("GET /lobbies", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		infos := hub.Lobbies()
		payloads := make([]lobbyPayload, 0, len(infos))
		for _, info := range infos {
			payloads = append(payloads, payload(info))
		}
		writeJSON(w, nethttp.StatusOK, payloads)
	})

	mux.HandleFunc("GET /lobbies/{code}", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		info, ok := hub.Lobby(r.PathValue("code"))
		if !ok {
			writeError(w, nethttp.StatusNotFound, "lobby not found")
			return
		}
		writeJSON(w, nethttp.StatusOK, payload(info))
	})

	mux.HandleFunc("POST /lobbies/{code}/join", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req joinLobbyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, nethttp.StatusBadRequest, "invalid payload")
			return
		}
		if strings.TrimSpace(req.PlayerName) == "" {
			writeError(w, nethttp.StatusBadRequest, "player_name is required")
			return
		}

		playerID, info, err := hub.JoinLobby(r.PathValue("code"), req.PlayerName)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		logger.Printf("player %d (%s) joined lobby %s", playerID, req.PlayerName, info.Code)
		writeJSON(w, nethttp.StatusOK, joinLobbyResponse{Lobby: payload(info), PlayerID: playerID})
	})

	if cfg.WSHandler != nil {
		mux.Handle("GET /ws", cfg.WSHandler)
	}

	return mux
}

func writeJSON(w nethttp.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		nethttp.Error(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w nethttp.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError maps the domain error taxonomy to HTTP statuses:
// not-found to 404, conflicts and full lobbies to 409, everything else to
// 400.
func writeDomainError(w nethttp.ResponseWriter, err error) {
	switch {
	case errors.Is(err, server.ErrLobbyNotFound), errors.Is(err, server.ErrPlayerNotFound), errors.Is(err, server.ErrWeaponNotFound):
		writeError(w, nethttp.StatusNotFound, err.Error())
	case errors.Is(err, server.ErrLobbyExists), errors.Is(err, server.ErrLobbyFull):
		writeError(w, nethttp.StatusConflict, err.Error())
	default:
		writeError(w, nethttp.StatusBadRequest, err.Error())
	}
}
