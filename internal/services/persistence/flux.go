package persistence

import (
	"fmt"
	"time"
)

const epochStart = "1970-01-01T00:00:00Z"

// buildLatestFlux selects the newest pivoted row of the measurement. last() runs
// per field table and is pushed down to storage, so only one row per field is
// pivoted; every field of a reading shares its _time.
func buildLatestFlux(bucket, measurement string) string {
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: %s)
  |> filter(fn: (r) => r._measurement == %q)
  |> last()
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> group()
  |> sort(columns: ["_time"], desc: true)
  |> limit(n: 1)
`, bucket, epochStart, measurement)
}

// buildSinceFlux selects every pivoted row at or after since, oldest first.
// range() is inclusive of its start bound.
func buildSinceFlux(bucket, measurement string, since time.Time) string {
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: %s)
  |> filter(fn: (r) => r._measurement == %q)
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> group()
  |> sort(columns: ["_time"])
`, bucket, since.UTC().Format(time.RFC3339Nano), measurement)
}
