package remote

import (
	"testing"

	"courier-go/internal/config"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func cfgWithType(typ string) config.RemoteConfig {
	return config.RemoteConfig{Type: typ}
}

func TestNewStoreFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.RemoteConfig
		wantErr bool
	}{
		{"memory", config.RemoteConfig{Type: "memory"}, false},
		{"sftp with host", config.RemoteConfig{Type: "sftp", Host: "files.example.com"}, false},
		{"sftp default type", config.RemoteConfig{Host: "files.example.com"}, false},
		{"sftp without host", config.RemoteConfig{Type: "sftp"}, true},
		{"s3 incomplete", config.RemoteConfig{Type: "s3", Endpoint: "s3.example.com"}, true},
		{"s3 complete", config.RemoteConfig{
			Type: "s3", Endpoint: "s3.example.com", Bucket: "courier",
			AccessKey: "ak", SecretKey: "sk",
		}, false},
		{"unknown", config.RemoteConfig{Type: "carrier-pigeon"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStoreFromConfig(tt.cfg, nopLogger{})
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
