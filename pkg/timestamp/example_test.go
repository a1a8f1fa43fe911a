package timestamp_test

import (
	"fmt"

	"github.com/c360/logstream/pkg/timestamp"
)

// ExampleParse demonstrates parsing the timestamp shapes servers emit
func ExampleParse() {
	// Parse RFC3339 string
	ts1 := timestamp.Parse("2023-01-15T12:30:45Z")
	fmt.Printf("RFC3339 parsed: %d\n", ts1)

	// Parse Unix seconds
	ts2 := timestamp.Parse(int64(1673784645))
	fmt.Printf("Unix seconds parsed: %d\n", ts2)

	// Parse Unix milliseconds
	ts3 := timestamp.Parse(int64(1673784645123))
	fmt.Printf("Unix milliseconds parsed: %d\n", ts3)

	// Output:
	// RFC3339 parsed: 1673785845000
	// Unix seconds parsed: 1673784645000
	// Unix milliseconds parsed: 1673784645123
}

// ExampleFormat demonstrates formatting timestamps for display
func ExampleFormat() {
	ts := int64(1673785845123)
	formatted := timestamp.Format(ts)
	fmt.Printf("Formatted: %s\n", formatted)

	// Zero timestamp returns empty string
	empty := timestamp.Format(0)
	fmt.Printf("Zero formatted: '%s'\n", empty)

	// Output:
	// Formatted: 2023-01-15T12:30:45Z
	// Zero formatted: ''
}

// ExampleBetween demonstrates measuring the gap between two log timestamps
func ExampleBetween() {
	first := timestamp.Parse("2023-01-15T12:30:45Z")
	second := timestamp.Parse("2023-01-15T12:30:47Z")
	fmt.Printf("Gap: %v\n", timestamp.Between(first, second))

	// Output:
	// Gap: 2s
}
