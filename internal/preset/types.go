package preset

import (
	"fmt"
	"strings"
	"time"
)

// DeviceType identifies which tuner family a preset is vetted for.
// A cable channel number means nothing to a satellite receiver, so
// presets are never applied across device types.
type DeviceType string

// Supported tuner families.
const (
	DeviceTypeCable     DeviceType = "cable"
	DeviceTypeSatellite DeviceType = "satellite"
)

// ValidDeviceTypes returns the accepted device type values.
func ValidDeviceTypes() []DeviceType {
	return []DeviceType{DeviceTypeCable, DeviceTypeSatellite}
}

// ChannelPreset is a named, pre-vetted channel number bound to a tuner
// family. Only channels with a preset are eligible for automated
// tuning; anything else needs a member of staff on the remote.
//
// UsageCount and LastUsedAt are mutated on every successful tune and
// feed the ranking order. Presets are never deleted automatically.
type ChannelPreset struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Channel    string     `json:"channel"`
	DeviceType DeviceType `json:"device_type"`

	// Network is the broadcaster the channel carries (e.g. "ESPN"),
	// matched against game listings during allocation.
	Network string `json:"network,omitempty"`

	UsageCount int        `json:"usage_count"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`

	// Position is the operator-chosen display order, used as the final
	// ranking tie-break.
	Position int `json:"position"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the preset's fields.
func (p *ChannelPreset) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPreset)
	}
	if !validChannel(p.Channel) {
		return fmt.Errorf("%w: channel must be 1-5 digits, got %q", ErrInvalidPreset, p.Channel)
	}
	if !validDeviceType(p.DeviceType) {
		return fmt.Errorf("%w: device_type must be one of %v, got %q", ErrInvalidPreset, ValidDeviceTypes(), p.DeviceType)
	}
	return nil
}

// validChannel accepts short all-digit channel numbers.
func validChannel(channel string) bool {
	if len(channel) == 0 || len(channel) > 5 {
		return false
	}
	for _, c := range channel {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func validDeviceType(dt DeviceType) bool {
	for _, v := range ValidDeviceTypes() {
		if dt == v {
			return true
		}
	}
	return false
}
