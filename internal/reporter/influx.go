package reporter

import (
	"context"
	"fmt"
	"time"

	"plant_monitor/internal/logger"
	"plant_monitor/internal/models"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// InfluxConfig configures the optional InfluxDB sink. Empty URL disables it.
type InfluxConfig struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Timeout     time.Duration
	MaxInFlight int
}

// InfluxReporter writes the same pushes as points.
type InfluxReporter struct {
	*dispatcher
	client influxdb2.Client
	writer api.WriteAPIBlocking
}

func NewInflux(cfg InfluxConfig, log *logger.Logger) *InfluxReporter {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	r := &InfluxReporter{client: client, writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket)}
	r.dispatcher = newDispatcher("influx", r.send, cfg.Timeout, cfg.MaxInFlight, log)
	return r
}

func (r *InfluxReporter) send(ctx context.Context, kind Kind, payload any) error {
	points, err := toPoints(payload)
	if err != nil {
		return &ReporterError{Kind: kind, Err: err}
	}
	if len(points) == 0 {
		return nil
	}
	if err := r.writer.WritePoint(ctx, points...); err != nil {
		return &ReporterError{Kind: kind, Err: err}
	}
	return nil
}

func toPoints(payload any) ([]*write.Point, error) {
	switch p := payload.(type) {
	case models.Reading:
		fields := map[string]interface{}{}
		for _, m := range models.Metrics {
			if v, ok := p.Value(m); ok {
				fields[string(m)] = v
			}
		}
		if len(fields) == 0 {
			return nil, nil
		}
		// reading_id is unique per point, so it is a field; a tag would open a series per reading
		fields["reading_id"] = p.ID
		return []*write.Point{influxdb2.NewPoint("reading", nil, fields, p.Timestamp)}, nil
	case Analysis:
		return []*write.Point{influxdb2.NewPoint("analysis",
			map[string]string{"source": p.Source},
			map[string]interface{}{"text": p.Text},
			p.Timestamp)}, nil
	case []Alert:
		out := make([]*write.Point, 0, len(p))
		for _, a := range p {
			out = append(out, influxdb2.NewPoint("alert",
				map[string]string{"metric": string(a.Metric), "bound": string(a.Bound), "severity": string(a.Severity)},
				map[string]interface{}{"value": a.Value, "message": a.Message},
				a.Timestamp))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported payload %T", payload)
	}
}

func (r *InfluxReporter) Close() error {
	r.dispatcher.close()
	r.client.Close()
	return nil
}
