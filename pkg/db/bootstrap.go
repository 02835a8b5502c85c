package db

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// seedFile is the YAML shape accepted by Bootstrap.
type seedFile struct {
	Receivers []seedReceiver `yaml:"receivers"`
}

type seedReceiver struct {
	Name            string            `yaml:"name"`
	Host            string            `yaml:"host"`
	Port            int               `yaml:"port"`
	SerialPort      string            `yaml:"serial_port"`
	UseCRLF         bool              `yaml:"use_crlf"`
	PollIntervalMs  int               `yaml:"poll_interval_ms"`
	RetryIntervalMs int               `yaml:"retry_interval_ms"`
	VolumeMaxRaw    int               `yaml:"volume_max_raw"`
	APIHost         string            `yaml:"api_host"`
	APIPort         int               `yaml:"api_port"`
	Active          bool              `yaml:"active"`
	ActiveInputs    []string          `yaml:"active_inputs"`
	InputLabels     map[string]string `yaml:"input_labels"`
	Meta            map[string]string `yaml:"meta"`
}

func (s seedReceiver) validate() error {
	if s.Host == "" && s.SerialPort == "" {
		return errors.New("receiver needs a host or a serial_port")
	}
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("invalid port %d", s.Port)
	}
	return nil
}

// NeedsBootstrap reports whether the database has no receivers yet.
func (db *DB) NeedsBootstrap(ctx context.Context) (bool, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM receivers`).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count receivers: %w", err)
	}
	return count == 0, nil
}

// Bootstrap seeds an empty database. When seedPath names a YAML seed file its
// receivers are loaded; otherwise a single placeholder receiver is created so
// the API can come up and be configured over HTTP.
func (db *DB) Bootstrap(ctx context.Context, seedPath string) error {
	needed, err := db.NeedsBootstrap(ctx)
	if err != nil {
		return err
	}
	if !needed {
		return nil
	}

	if seedPath == "" {
		log.Info().Msg("seeding database with placeholder receiver")
		id, err := db.CreateReceiver(ctx, &Receiver{Name: "Receiver"})
		if err != nil {
			return err
		}
		return db.SetActiveReceiver(ctx, id)
	}

	raw, err := os.ReadFile(seedPath)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}
	if len(seed.Receivers) == 0 {
		return errors.New("seed file has no receivers")
	}

	var activeID int64
	for i, sr := range seed.Receivers {
		if err := sr.validate(); err != nil {
			return fmt.Errorf("seed receiver %d: %w", i, err)
		}

		id, err := db.CreateReceiver(ctx, &Receiver{
			Name:            sr.Name,
			Host:            sr.Host,
			Port:            sr.Port,
			SerialPort:      sr.SerialPort,
			UseCRLF:         sr.UseCRLF,
			PollIntervalMs:  sr.PollIntervalMs,
			RetryIntervalMs: sr.RetryIntervalMs,
			VolumeMaxRaw:    sr.VolumeMaxRaw,
			APIHost:         sr.APIHost,
			APIPort:         sr.APIPort,
		})
		if err != nil {
			return fmt.Errorf("seed receiver %d: %w", i, err)
		}

		patch := make(map[string]any)
		for key, value := range sr.Meta {
			patch[key] = value
		}
		if len(sr.ActiveInputs) > 0 {
			patch["activeSliCodes"] = sr.ActiveInputs
		}
		for code, label := range sr.InputLabels {
			patch["inputLabel_"+code] = label
		}
		if err := db.ApplyMetaPatch(ctx, id, patch); err != nil {
			return fmt.Errorf("seed receiver %d meta: %w", i, err)
		}

		if sr.Active || activeID == 0 {
			activeID = id
		}
		log.Info().Int64("receiver_id", id).Str("host", sr.Host).Msg("seeded receiver")
	}

	return db.SetActiveReceiver(ctx, activeID)
}
