package models

import (
	"encoding/json"
	"fmt"
	"github.com/op/go-logging"
	"github.com/pkppln/depositor/constants"
	"github.com/pkppln/depositor/util/fileutil"
	"io/ioutil"
	"path/filepath"
)

// Config is loaded from a JSON file at startup. It names the
// preservation network we deposit into, the local staging area, and
// the tenants whose content we preserve. There are separate config
// files for demo, production, etc.
type Config struct {
	// NetworkUrl is the base URL of the preservation network's
	// staging server. The SWORD resource paths in the constants
	// package hang off this.
	NetworkUrl string

	// StagingDirectory is where deposits are assembled. Each deposit
	// gets its own directory under <staging>/<tenant-uuid>/<uuid>,
	// holding the archive and its metadata document until the
	// network confirms receipt.
	StagingDirectory string

	// SchemaDirectory holds the fixed reference schema documents
	// copied into every bag, so archives stay self-describing
	// without external fetches.
	SchemaDirectory string

	// DataFilePath is the bolt database file holding deposits,
	// deposit objects and tenant state.
	DataFilePath string

	// BatchSize is the article batching threshold. Articles wait
	// until a full batch of this size accumulates; issues are never
	// batched.
	BatchSize int

	// LogDirectory is where the message log goes.
	LogDirectory string

	// LogLevel is defined in github.com/op/go-logging and should be
	// one of: 1 - CRITICAL, 2 - ERROR, 3 - WARNING, 4 - NOTICE,
	// 5 - INFO, 6 - DEBUG
	LogLevel logging.Level

	// If true, processes will log to STDERR in addition to their
	// standard log files. You really only want to do this in
	// development.
	LogToStderr bool

	// NsqdAddress is the TCP address of the nsqd that carries
	// manager notifications. Leave empty to disable notifications.
	NsqdAddress string

	// NotifyTopic is the NSQ topic notifications are published to.
	NotifyTopic string

	// ArchiveEndpoint and ArchiveBucket configure optional archive
	// hosting on an S3-compatible store. When ArchiveBucket is set,
	// finished archives are uploaded there and the metadata document
	// points the network at the hosted copy instead of the
	// publisher's own gateway. Credentials come from the environment
	// (ARCHIVE_ACCESS_KEY / ARCHIVE_SECRET_KEY).
	ArchiveEndpoint string
	ArchiveBucket   string
	ArchiveUseSSL   bool

	// Tenants are the journals this depositor preserves.
	Tenants []*Tenant
}

// LoadConfigFile reads and validates the JSON config at
// pathToConfigFile.
func LoadConfigFile(pathToConfigFile string) (*Config, error) {
	expanded, err := fileutil.ExpandTilde(pathToConfigFile)
	if err == nil {
		pathToConfigFile = expanded
	}
	data, err := ioutil.ReadFile(pathToConfigFile)
	if err != nil {
		return nil, fmt.Errorf("Error reading config file '%s': %v",
			pathToConfigFile, err)
	}
	config := &Config{}
	err = json.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("Error parsing JSON from config file '%s': %v",
			pathToConfigFile, err)
	}
	config.ExpandFilePaths()
	config.applyDefaults()
	err = config.validate()
	if err != nil {
		return nil, err
	}
	return config, nil
}

func (config *Config) applyDefaults() {
	if config.BatchSize <= 0 {
		config.BatchSize = constants.DefaultBatchSize
	}
	if config.NotifyTopic == "" {
		config.NotifyTopic = "pln_notifications"
	}
	if config.LogLevel == 0 {
		config.LogLevel = logging.INFO
	}
}

func (config *Config) validate() error {
	if config.NetworkUrl == "" {
		return fmt.Errorf("Config is missing NetworkUrl")
	}
	if config.StagingDirectory == "" {
		return fmt.Errorf("Config is missing StagingDirectory")
	}
	if config.DataFilePath == "" {
		return fmt.Errorf("Config is missing DataFilePath")
	}
	for _, tenant := range config.Tenants {
		if tenant.UUID == "" {
			return fmt.Errorf("Config tenant '%s' is missing a UUID", tenant.Title)
		}
	}
	return nil
}

// ExpandFilePaths expands ~ in the directory settings.
func (config *Config) ExpandFilePaths() {
	expanded, err := fileutil.ExpandTilde(config.StagingDirectory)
	if err == nil {
		config.StagingDirectory = expanded
	}
	expanded, err = fileutil.ExpandTilde(config.SchemaDirectory)
	if err == nil {
		config.SchemaDirectory = expanded
	}
	expanded, err = fileutil.ExpandTilde(config.DataFilePath)
	if err == nil {
		config.DataFilePath = expanded
	}
	expanded, err = fileutil.ExpandTilde(config.LogDirectory)
	if err == nil {
		config.LogDirectory = expanded
	}
}

func (config *Config) AbsLogDirectory() string {
	absLogDir, err := filepath.Abs(config.LogDirectory)
	if err != nil {
		msg := fmt.Sprintf("Cannot get absolute path to log directory. "+
			"config.LogDirectory is set to '%s'", config.LogDirectory)
		panic(msg)
	}
	return absLogDir
}

// TenantForUUID returns the config entry for the tenant with the
// given UUID, or nil if the tenant is not configured.
func (config *Config) TenantForUUID(uuid string) *Tenant {
	for _, tenant := range config.Tenants {
		if tenant.UUID == uuid {
			return tenant
		}
	}
	return nil
}

// HasTenant says whether the tenant is still configured. Garbage
// collection uses this to find deposits whose tenant went away.
func (config *Config) HasTenant(uuid string) bool {
	return config.TenantForUUID(uuid) != nil
}

// DepositDirectory returns the staging directory for one deposit.
func (config *Config) DepositDirectory(deposit *Deposit) string {
	return filepath.Join(config.StagingDirectory, deposit.TenantUUID, deposit.UUID)
}
