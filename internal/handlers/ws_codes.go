// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the gateway.
const (
	BadSubprotocolError = 3000 // Client connected without the wordchain subprotocol.
	ServerShutdownError = 3001 // The server is going away.
)
