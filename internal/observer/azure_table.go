package observer

import (
	"context"
	"encoding/json"
	"log/slog"

	"ariusmonitor.flagee.cloud/internal/logger"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
)

type ReportEntity struct {
	aztables.Entity
	Program      string
	Version      string
	Operation    string
	Library      string
	Manufacturer string
	Device       string
	Outcome      string
	OK           bool
	Attempts     int
	SessionID    int32
	Recovered    string
	Error        string
	Started      string
	Finished     string
}

type AzureTable struct {
	baseObserver
	client *aztables.Client
}

// NewAzureTable connects with a SAS URL. The table defaults to "satoutcomes".
func NewAzureTable(name, conn string, opts map[string]string) (az *AzureTable, err error) {
	service, err := aztables.NewServiceClientWithNoCredential(conn, nil)
	if err != nil {
		return nil, err
	}
	table := opts["table"]
	if table == "" {
		table = "satoutcomes"
	}
	return &AzureTable{
		baseObserver: baseObserver{name: name, observerType: "azure_table"},
		client:       service.NewClient(table),
	}, nil
}

func (az *AzureTable) SaveReports(r []Report) bool {
	return az.save(r, az.addEntities)
}

func toEntity(r Report) ReportEntity {
	return ReportEntity{
		Entity: aztables.Entity{
			PartitionKey: r.Hostname,
			RowKey:       r.RunID,
		},
		Program:      r.Program,
		Version:      r.Version,
		Operation:    r.Operation,
		Library:      r.Library,
		Manufacturer: r.Manufacturer,
		Device:       r.Device,
		Outcome:      r.Outcome,
		OK:           r.OK,
		Attempts:     r.Attempts,
		SessionID:    r.SessionID,
		Recovered:    r.Recovered,
		Error:        r.Error,
		Started:      r.Started.UTC().Format("2006-01-02T15:04:05Z"),
		Finished:     r.Finished.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func (az *AzureTable) addEntities(reports []Report) (failed []Report, err error) {
	for _, r := range reports {
		marshalled, merr := json.Marshal(toEntity(r))
		if merr != nil {
			logger.Error("Failed to marshall to Entity", slog.String("name", az.name), slog.Any("error", merr))
			continue
		}
		if _, aerr := az.client.AddEntity(context.TODO(), marshalled, nil); aerr != nil {
			logger.Error("Failed to save entity", slog.String("name", az.name), slog.Any("error", aerr))
			failed = append(failed, r)
			err = aerr
		}
	}
	return failed, err
}
