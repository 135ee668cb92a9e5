package config

var embeddedConfigs = map[string][]byte{
	"pico-sim": []byte(`{
		"sensor": "sim",
		"reporter": "debug"
	}`),
	"pico-ina219": []byte(`{
		"sensor": "ina219",
		"reporter": "debug",
		"threshold_mw": 600
	}`),
	"pico-wifi": []byte(`{
		"sensor": "ina219",
		"reporter": "wifi",
		"wifi": {"ssid": "YourWiFiSSID", "password": "YourWiFiPassword"},
		"server": {"host": "192.168.1.100", "port": 3000, "path": "/api/energy"},
		"modem": {"baud": 115200, "retry_backoff_ms": 10000}
	}`),
}
