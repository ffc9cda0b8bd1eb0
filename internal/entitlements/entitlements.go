package entitlements

import "encoding/json"

// Kind identifies which entitlement variant a manifest entry carries.
type Kind string

const (
	KindNetwork   Kind = "network"
	KindVideo     Kind = "video"
	KindAudio     Kind = "audio"
	KindBluetooth Kind = "bluetooth"
)

// NetworkMode selects the container's network namespace policy.
type NetworkMode string

const (
	NetworkHost NetworkMode = "host"
	NetworkNone NetworkMode = "none"
)

// BluetoothMode selects how a bluetooth entitlement is granted.
type BluetoothMode string

const (
	BluetoothKernel    BluetoothMode = "kernel"
	BluetoothUserspace BluetoothMode = "userspace"
)

// Network carries the network entitlement's payload.
type Network struct {
	Mode NetworkMode `json:"mode"`
}

// Bluetooth carries the bluetooth entitlement's payload.
type Bluetooth struct {
	Mode BluetoothMode `json:"mode"`
}

// Entitlement is one recognized (or unrecognized) entry in an application's
// entitlements manifest. Exactly one of Network/Bluetooth is populated,
// selected by Kind; Video and Audio carry no payload beyond their presence.
//
// This is the tagged-union shape for wire decoding: the JSON form is a
// single-key object ({"video": {}}, {"network": {"mode": "host"}}) rather
// than a class hierarchy, so new variants can be added without touching
// every consumer. Consumers that don't recognize a Kind simply skip it.
type Entitlement struct {
	Kind      Kind
	Network   Network
	Bluetooth Bluetooth
}

// Recognized reports whether e is one of the variants this daemon knows how
// to apply. Unknown variants decode successfully (see UnmarshalJSON) but are
// never recognized, so callers skip them without failing, keeping the
// entitlements manifest forward-compatible with variants this build predates.
func (e Entitlement) Recognized() bool {
	switch e.Kind {
	case KindNetwork, KindVideo, KindAudio, KindBluetooth:
		return true
	default:
		return false
	}
}

// UnmarshalJSON decodes a single-key entitlement object, identifying the
// variant by whichever recognized key is present. An object with no
// recognized key decodes to a zero Entitlement (Kind == "") and is silently
// ignored by every consumer, satisfying the "ignore unknown variants"
// invariant.
func (e *Entitlement) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if payload, ok := raw["network"]; ok {
		var n Network
		if err := json.Unmarshal(payload, &n); err != nil {
			return err
		}
		e.Kind = KindNetwork
		e.Network = n
		return nil
	}
	if _, ok := raw["video"]; ok {
		e.Kind = KindVideo
		return nil
	}
	if _, ok := raw["audio"]; ok {
		e.Kind = KindAudio
		return nil
	}
	if payload, ok := raw["bluetooth"]; ok {
		var b Bluetooth
		if err := json.Unmarshal(payload, &b); err != nil {
			return err
		}
		e.Kind = KindBluetooth
		e.Bluetooth = b
		return nil
	}

	// Unrecognized variant: leave Kind empty rather than failing, per the
	// manifest's forward-compatibility contract.
	return nil
}

// MarshalJSON re-encodes the entitlement into its single-key wire form.
func (e Entitlement) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindNetwork:
		return json.Marshal(map[string]Network{"network": e.Network})
	case KindVideo:
		return json.Marshal(map[string]struct{}{"video": {}})
	case KindAudio:
		return json.Marshal(map[string]struct{}{"audio": {}})
	case KindBluetooth:
		return json.Marshal(map[string]Bluetooth{"bluetooth": e.Bluetooth})
	default:
		return json.Marshal(map[string]struct{}{})
	}
}

// Manifest is the decoded entitlements blob delivered alongside a deploy
// request: the application's identity, declared version, and entitlements.
type Manifest struct {
	AppID        string        `json:"appId"`
	Version      string        `json:"version"`
	Entitlements []Entitlement `json:"entitlements"`
}

// Decode parses an application's entitlements manifest blob.
//
// An empty or malformed blob is not an error: it decodes to a manifest
// carrying appName as the AppID, version "0.0.0", and no entitlements, so a
// deploy can always proceed even when the client sends no manifest.
func Decode(appName string, blob []byte) Manifest {
	def := Manifest{AppID: appName, Version: "0.0.0"}
	if len(blob) == 0 {
		return def
	}

	var m Manifest
	if err := json.Unmarshal(blob, &m); err != nil {
		return def
	}
	if m.AppID == "" {
		m.AppID = appName
	}
	if m.Version == "" {
		m.Version = "0.0.0"
	}
	return m
}

// Find returns the entitlements of a given kind present in the manifest.
// Every recognized kind can appear at most meaningfully once in practice,
// but the manifest format does not forbid repeats, so callers that need a
// single value should take the last match.
func (m Manifest) Find(kind Kind) []Entitlement {
	var out []Entitlement
	for _, e := range m.Entitlements {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Has reports whether the manifest carries at least one entitlement of kind.
func (m Manifest) Has(kind Kind) bool {
	for _, e := range m.Entitlements {
		if e.Kind == kind {
			return true
		}
	}
	return false
}
