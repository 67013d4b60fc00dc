package models

import "time"

// DeviceInfo describes the RD-service device that produced a capture
type DeviceInfo struct {
	DPID   string `json:"dp_id"`
	RDSID  string `json:"rds_id"`
	RDSVer string `json:"rds_ver"`
	MI     string `json:"mi"`
	MC     string `json:"mc"`
	DC     string `json:"dc"`
}

// BiometricCapture is the normalized result of one fingerprint capture.
// It only lives in the onboarding flow until it is submitted or replaced.
type BiometricCapture struct {
	Device     string     `json:"device"`
	RawXML     string     `json:"raw_xml"`
	SessionKey string     `json:"session_key"`
	HMAC       string     `json:"hmac"`
	PIDData    string     `json:"pid_data"`
	DeviceInfo DeviceInfo `json:"device_info"`
	CapturedAt time.Time  `json:"captured_at"`
}

// CaptureSetup is what a browser needs to drive its own RD-service driver
type CaptureSetup struct {
	Devices    []string `json:"devices"`
	PidOptions string   `json:"pid_options"`
}
