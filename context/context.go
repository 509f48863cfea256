package context

import (
	"fmt"
	"github.com/op/go-logging"
	"github.com/pkppln/depositor/models"
	"github.com/pkppln/depositor/network"
	"github.com/pkppln/depositor/util/logger"
	"github.com/pkppln/depositor/util/storage"
	"os"
	"sync/atomic"
)

/*
Context sets up the items common to the depositor's processing
stages: config, logging, the SWORD client, the publisher export
client, the local store, and the optional notifier and archive
publisher. Everything the pipeline needs comes in through here;
there are no package-level singletons.
*/
type Context struct {
	Config        *models.Config
	MessageLog    *logging.Logger
	PLNClient     *network.PLNRestClient
	ExportClient  *network.ExportClient
	Store         *storage.BoltStore
	Notifier      network.Notifier
	Publisher     network.Publisher
	pathToLogFile string
	succeeded     int64
	failed        int64
}

/*
NewContext creates and returns a new Context object. Because some
items are absolutely required by the processes that use it, this
method will panic if it gets an invalid config, or if it cannot set
up essential services such as logging or the local store.
*/
func NewContext(config *models.Config) (context *Context) {
	context = &Context{
		succeeded: int64(0),
		failed:    int64(0),
	}
	context.Config = config
	context.MessageLog, context.pathToLogFile = logger.InitLogger(config)
	context.initPLNClient()
	context.ExportClient = network.NewExportClient(context.MessageLog)
	context.initStore()
	context.initNotifier()
	context.initPublisher()
	return context
}

func (context *Context) initPLNClient() {
	plnClient, err := network.NewPLNRestClient(context.Config.NetworkUrl, context.MessageLog)
	if err != nil {
		message := fmt.Sprintf("Exiting. Cannot initialize PLN client: %v", err)
		fmt.Fprintln(os.Stderr, message)
		context.MessageLog.Fatal(message)
	}
	context.PLNClient = plnClient
}

func (context *Context) initStore() {
	store, err := storage.NewBoltStore(context.Config.DataFilePath)
	if err != nil {
		message := fmt.Sprintf("Exiting. Cannot open data file %s: %v",
			context.Config.DataFilePath, err)
		fmt.Fprintln(os.Stderr, message)
		context.MessageLog.Fatal(message)
	}
	context.Store = store
}

// The notifier is optional. With no nsqd configured, notifications
// are logged and dropped.
func (context *Context) initNotifier() {
	if context.Config.NsqdAddress == "" {
		context.MessageLog.Info("No NsqdAddress in config: manager notifications disabled")
		return
	}
	notifier, err := network.NewNSQNotifier(context.Config.NsqdAddress,
		context.Config.NotifyTopic, context.MessageLog)
	if err != nil {
		message := fmt.Sprintf("Exiting. Cannot connect to nsqd at %s: %v",
			context.Config.NsqdAddress, err)
		fmt.Fprintln(os.Stderr, message)
		context.MessageLog.Fatal(message)
	}
	context.Notifier = notifier
}

// Archive hosting is optional. Credentials come from the environment
// so they stay out of config files.
func (context *Context) initPublisher() {
	if context.Config.ArchiveBucket == "" {
		return
	}
	publisher, err := network.NewArchivePublisher(
		context.Config.ArchiveEndpoint,
		os.Getenv("ARCHIVE_ACCESS_KEY"),
		os.Getenv("ARCHIVE_SECRET_KEY"),
		context.Config.ArchiveBucket,
		context.Config.ArchiveUseSSL,
		context.MessageLog)
	if err != nil {
		message := fmt.Sprintf("Exiting. Cannot initialize archive publisher: %v", err)
		fmt.Fprintln(os.Stderr, message)
		context.MessageLog.Fatal(message)
	}
	context.Publisher = publisher
}

// NotifyManagers forwards to the configured notifier, or just logs
// when notifications are disabled.
func (context *Context) NotifyManagers(tenantUUID, eventKind string) {
	if context.Notifier == nil {
		context.MessageLog.Info("Notification (unsent, no notifier): tenant %s, event %s",
			tenantUUID, eventKind)
		return
	}
	context.Notifier.NotifyManagers(tenantUUID, eventKind)
}

// Returns the number of deposits that succeeded in this run.
func (context *Context) Succeeded() int64 {
	return context.succeeded
}

// Returns the number of deposits that failed in this run.
func (context *Context) Failed() int64 {
	return context.failed
}

// Increases the count of successfully processed deposits by one.
func (context *Context) IncrementSucceeded() int64 {
	atomic.AddInt64(&context.succeeded, 1)
	return context.succeeded
}

// Increases the count of unsuccessfully processed deposits by one.
func (context *Context) IncrementFailed() int64 {
	atomic.AddInt64(&context.failed, 1)
	return context.failed
}

// Returns the path to this process' log file.
func (context *Context) PathToLogFile() string {
	return context.pathToLogFile
}

// Logs info about the number of deposits that have succeeded and failed.
func (context *Context) LogStats() {
	context.MessageLog.Info("**STATS** Succeeded: %d, Failed: %d",
		context.Succeeded(), context.Failed())
}
