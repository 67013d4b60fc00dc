package rdservice

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/paybazaar/retailer-portal/internal/models"
)

// ParseCapture normalizes a driver's PidData response into one capture value.
// Data, Skey and Hmac may each hold their text directly or inside a single
// wrapping child element; both shapes produce the same result.
func ParseCapture(raw []byte) (models.BiometricCapture, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return models.BiometricCapture{}, &ResponseError{Reason: "PidData not found"}
	}

	pid := doc.FindElement("//PidData")
	if pid == nil {
		return models.BiometricCapture{}, &ResponseError{Reason: "PidData not found"}
	}

	resp := pid.SelectElement("Resp")
	if resp == nil {
		return models.BiometricCapture{}, &ResponseError{Reason: "Resp not found"}
	}
	code := strings.TrimSpace(resp.SelectAttrValue("errCode", ""))
	if code == "" {
		return models.BiometricCapture{}, &ResponseError{Reason: "errCode not found"}
	}
	if code != "0" {
		return models.BiometricCapture{}, &DeviceError{Code: code, Info: resp.SelectAttrValue("errInfo", "")}
	}

	data, ok := fieldText(pid, "Data")
	if !ok {
		return models.BiometricCapture{}, &ResponseError{Reason: "Data not found"}
	}
	skey, ok := fieldText(pid, "Skey")
	if !ok {
		return models.BiometricCapture{}, &ResponseError{Reason: "Skey not found"}
	}
	hmac, ok := fieldText(pid, "Hmac")
	if !ok {
		return models.BiometricCapture{}, &ResponseError{Reason: "Hmac not found"}
	}

	capture := models.BiometricCapture{
		RawXML:     string(raw),
		PIDData:    data,
		SessionKey: skey,
		HMAC:       hmac,
	}
	if info := pid.SelectElement("DeviceInfo"); info != nil {
		capture.DeviceInfo = deviceInfo(info)
	}
	return capture, nil
}

func fieldText(parent *etree.Element, tag string) (string, bool) {
	el := parent.SelectElement(tag)
	if el == nil {
		return "", false
	}
	if text := strings.TrimSpace(el.Text()); text != "" {
		return text, true
	}
	for _, child := range el.ChildElements() {
		if text := strings.TrimSpace(child.Text()); text != "" {
			return text, true
		}
	}
	return "", false
}

func deviceInfo(el *etree.Element) models.DeviceInfo {
	return models.DeviceInfo{
		DPID:   el.SelectAttrValue("dpId", ""),
		RDSID:  el.SelectAttrValue("rdsId", ""),
		RDSVer: el.SelectAttrValue("rdsVer", ""),
		MI:     el.SelectAttrValue("mi", ""),
		MC:     el.SelectAttrValue("mc", ""),
		DC:     el.SelectAttrValue("dc", ""),
	}
}
