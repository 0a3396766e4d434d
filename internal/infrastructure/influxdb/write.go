package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteVolume records the main zone volume after a state update.
//
// Both representations are stored so dashboards can plot either the raw
// decibel value or the normalised level without re-deriving the curve.
// The write is non-blocking; data is batched and sent asynchronously.
func (c *Client) WriteVolume(volumeDB float64, level float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"volume",
		map[string]string{
			"zone": "main",
		},
		map[string]interface{}{
			"db":    volumeDB,
			"level": level,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePowerState records a processor power state transition.
//
// The state tag carries the lifecycle name (on, off, initializing,
// shutting_down) and powered is 1 while the unit is usable.
func (c *Client) WritePowerState(state string, powered bool) {
	if !c.IsConnected() {
		return
	}

	poweredVal := 0
	if powered {
		poweredVal = 1
	}

	point := write.NewPoint(
		"processor_state",
		map[string]string{
			"state": state,
		},
		map[string]interface{}{
			"powered": poweredVal,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteConnectivity records a connection state change of the processor
// session. Used for uptime dashboards and disconnect alerting.
func (c *Client) WriteConnectivity(connected bool) {
	if !c.IsConnected() {
		return
	}

	connectedVal := 0
	if connected {
		connectedVal = 1
	}

	point := write.NewPoint(
		"connectivity",
		map[string]string{
			"protocol": "isp",
		},
		map[string]interface{}{
			"connected": connectedVal,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteCommand records a command forwarded to the processor.
//
// Tags stay low cardinality: one entity name per control surface.
func (c *Client) WriteCommand(entity string, ok bool) {
	if !c.IsConnected() {
		return
	}

	okVal := 0
	if ok {
		okVal = 1
	}

	point := write.NewPoint(
		"commands",
		map[string]string{
			"entity": entity,
		},
		map[string]interface{}{
			"count": 1,
			"ok":    okVal,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
