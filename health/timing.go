package health

import (
	"time"

	"github.com/ONSdigital/go-ns/log"
)

// TrackTime logs the time taken by the method. Usage - as the first line in a method: defer health.TrackTime(time.Now(), "methodName", nil)
func TrackTime(start time.Time, name string, data log.Data) {
	if data == nil {
		data = log.Data{}
	}
	data["elapsed_ms"] = float64(time.Since(start).Round(time.Millisecond) / time.Millisecond)
	log.Debug(name+" completed", data)
}
