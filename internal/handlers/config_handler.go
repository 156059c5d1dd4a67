package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scimdash/internal/common"
)

type ConfigHandler struct {
	logger arbor.ILogger
	config *common.Config
}

func NewConfigHandler(logger arbor.ILogger, config *common.Config) *ConfigHandler {
	return &ConfigHandler{
		logger: logger,
		config: config,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Version string         `json:"version"`
	Build   string         `json:"build"`
	Port    int            `json:"port"`
	Host    string         `json:"host"`
	Config  *common.Config `json:"config"`
}

// GetConfig returns the running configuration. The copy never carries credentials; the
// compliance service URL is reduced to scheme and host.
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	config := common.SanitizedConfig(h.config)

	response := ConfigResponse{
		Version: common.GetVersion(),
		Build:   common.GetBuild(),
		Port:    config.Server.Port,
		Host:    config.Server.Host,
		Config:  config,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode config response")
	}
}
