package transport

// Tuning outcome labels reported in logs.
const (
	StatusOK     = "ok"
	StatusNA     = "n/a"
	StatusDenied = "denied"
)
