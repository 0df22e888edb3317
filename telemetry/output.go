package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/cmfunderburk/vmt-dev-sub002/scenario"
)

// OutputManager is the CSV Sink implementation: one file each for
// events, window stats, and agent snapshots, plus a copy of the scenario
// for reproducibility.
type OutputManager struct {
	dir          string
	eventFile    *os.File
	statsFile    *os.File
	snapshotFile *os.File

	eventHeaderWritten    bool
	statsHeaderWritten    bool
	snapshotHeaderWritten bool
}

// OutputManager implements Sink.
var _ Sink = (*OutputManager)(nil)

// NewOutputManager creates the output directory and its CSV files.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, "events.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating events.csv: %w", err)
	}
	om.eventFile = f

	f, err = os.Create(filepath.Join(dir, "stats.csv"))
	if err != nil {
		om.eventFile.Close()
		return nil, fmt.Errorf("creating stats.csv: %w", err)
	}
	om.statsFile = f

	f, err = os.Create(filepath.Join(dir, "snapshots.csv"))
	if err != nil {
		om.eventFile.Close()
		om.statsFile.Close()
		return nil, fmt.Errorf("creating snapshots.csv: %w", err)
	}
	om.snapshotFile = f

	return om, nil
}

// WriteScenario saves the scenario used for the run as YAML.
func (om *OutputManager) WriteScenario(scn *scenario.Scenario) error {
	if om == nil {
		return nil
	}
	return scn.WriteYAML(filepath.Join(om.dir, "scenario.yaml"))
}

// Record appends one event row to events.csv.
func (om *OutputManager) Record(ev Event) error {
	if om == nil {
		return nil
	}

	records := []Event{ev}
	if !om.eventHeaderWritten {
		if err := gocsv.Marshal(records, om.eventFile); err != nil {
			return fmt.Errorf("writing event: %w", err)
		}
		om.eventHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.eventFile); err != nil {
			return fmt.Errorf("writing event: %w", err)
		}
	}
	return nil
}

// WriteStats appends one window-stats row to stats.csv.
func (om *OutputManager) WriteStats(stats WindowStats) error {
	if om == nil {
		return nil
	}

	records := []WindowStats{stats}
	if !om.statsHeaderWritten {
		if err := gocsv.Marshal(records, om.statsFile); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
		om.statsHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.statsFile); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
	}
	return nil
}

// WriteSnapshots appends agent state rows to snapshots.csv.
func (om *OutputManager) WriteSnapshots(snaps []AgentSnapshot) error {
	if om == nil || len(snaps) == 0 {
		return nil
	}

	if !om.snapshotHeaderWritten {
		if err := gocsv.Marshal(snaps, om.snapshotFile); err != nil {
			return fmt.Errorf("writing snapshots: %w", err)
		}
		om.snapshotHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(snaps, om.snapshotFile); err != nil {
			return fmt.Errorf("writing snapshots: %w", err)
		}
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, f := range []*os.File{om.eventFile, om.statsFile, om.snapshotFile} {
		if f != nil {
			if err := f.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
