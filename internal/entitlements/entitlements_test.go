package entitlements

import "testing"

func TestDecodeEmptyBlob(t *testing.T) {
	m := Decode("cam", nil)
	if m.AppID != "cam" {
		t.Fatalf("AppID = %q, want cam", m.AppID)
	}
	if m.Version != "0.0.0" {
		t.Fatalf("Version = %q, want 0.0.0", m.Version)
	}
	if len(m.Entitlements) != 0 {
		t.Fatalf("Entitlements = %v, want empty", m.Entitlements)
	}
}

func TestDecodeMalformedBlob(t *testing.T) {
	m := Decode("cam", []byte("not json"))
	if m.AppID != "cam" || m.Version != "0.0.0" {
		t.Fatalf("malformed blob did not fall back: %+v", m)
	}
}

func TestDecodeFull(t *testing.T) {
	blob := []byte(`{"appId":"cam","version":"1.0.0","entitlements":[{"video":{}},{"network":{"mode":"host"}}]}`)
	m := Decode("cam", blob)

	if m.Version != "1.0.0" {
		t.Fatalf("Version = %q, want 1.0.0", m.Version)
	}
	if !m.Has(KindVideo) {
		t.Fatal("expected video entitlement")
	}
	if !m.Has(KindNetwork) {
		t.Fatal("expected network entitlement")
	}

	nets := m.Find(KindNetwork)
	if len(nets) != 1 || nets[0].Network.Mode != NetworkHost {
		t.Fatalf("network entitlement = %+v, want mode=host", nets)
	}
}

func TestUnmarshalUnknownVariantIgnored(t *testing.T) {
	blob := []byte(`{"appId":"cam","version":"2.0.0","entitlements":[{"gpu":{"count":1}},{"audio":{}}]}`)
	m := Decode("cam", blob)

	if len(m.Entitlements) != 2 {
		t.Fatalf("len(Entitlements) = %d, want 2 (unknown kept, unrecognized)", len(m.Entitlements))
	}
	if m.Entitlements[0].Recognized() {
		t.Fatal("gpu entitlement should not be recognized")
	}
	if !m.Entitlements[1].Recognized() || m.Entitlements[1].Kind != KindAudio {
		t.Fatalf("second entitlement = %+v, want recognized audio", m.Entitlements[1])
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	orig := Entitlement{Kind: KindBluetooth, Bluetooth: Bluetooth{Mode: BluetoothUserspace}}
	data, err := orig.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}

	var decoded Entitlement
	if err := decoded.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if decoded.Kind != KindBluetooth || decoded.Bluetooth.Mode != BluetoothUserspace {
		t.Fatalf("round trip = %+v, want bluetooth/userspace", decoded)
	}
}
