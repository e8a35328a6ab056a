package config

var defaults = map[string]any{
	"secret":    "",
	"token_ttl": "168h", // 7 days
	"log_level": "info",

	"listen":          ":8080",
	"site_url":        "http://localhost:8080",
	"timezone":        "America/Chicago",
	"trusted_proxies": []string{},

	"calendar.backend":          "google",
	"calendar.credentials":      "",
	"calendar.credentials_file": "",
	"calendar.ids.20":           "",
	"calendar.ids.30":           "",
	"calendar.ids.40":           "",

	"inventory.file":    "",
	"inventory.caps.20": 1,
	"inventory.caps.30": 2,
	"inventory.caps.40": 2,

	"booking.overage_fee": 10,

	"email.backend":  "smtp",
	"email.host":     "smtp.resend.com",
	"email.port":     587,
	"email.username": "resend",
	"email.password": "",
	"email.from":     "noreply@example.com",
	"email.operator": "",

	"ratelimit.store":          "memory",
	"ratelimit.requests":       10,
	"ratelimit.window":         "15m",
	"ratelimit.redis.addr":     "localhost:6379",
	"ratelimit.redis.password": "",
	"ratelimit.redis.db":       0,

	"storage.local.path": "./data/storage.db",
}

func Defaults() map[string]any {
	values := make(map[string]any)
	for k, v := range defaults {
		values[k] = v
	}
	return values
}
