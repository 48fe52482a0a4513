package handler

import (
	"encoding/json"
	"net/http"

	"github.com/villagehub/bizdir/internal/device"
)

// ProfileResponse is the device identity payload.
type ProfileResponse struct {
	DeviceID    string `json:"device_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// DisplayNameRequest is the body for choosing a display name.
type DisplayNameRequest struct {
	DisplayName string `json:"display_name" validate:"required,min=1,max=60"`
}

// HandleGetProfile returns the device identifier and chosen display name.
// @Summary Get device profile
// @Tags profile
// @Produce json
// @Success 200 {object} ProfileResponse
// @Router /api/v1/profile [get]
func HandleGetProfile(devices *device.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, ProfileResponse{
			DeviceID:    devices.DeviceID(),
			DisplayName: devices.DisplayName(),
		})
	}
}

// HandleSetDisplayName stores the user's chosen display name.
// @Summary Set display name
// @Tags profile
// @Accept json
// @Produce json
// @Param request body DisplayNameRequest true "Display name"
// @Success 200 {object} ProfileResponse
// @Router /api/v1/profile/display-name [put]
func HandleSetDisplayName(devices *device.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DisplayNameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, ErrMsgInvalidRequestError)
			return
		}
		if err := GetValidator().ValidateStruct(req); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]any{"errors": FormatValidationError(err)})
			return
		}

		if err := devices.SetDisplayName(req.DisplayName); err != nil {
			respondError(w, http.StatusInternalServerError, ErrMsgGenericServerError)
			return
		}

		respondJSON(w, http.StatusOK, ProfileResponse{
			DeviceID:    devices.DeviceID(),
			DisplayName: devices.DisplayName(),
		})
	}
}
