package prometheus

import (
	"strconv"

	"github.com/prometheus/common/model"

	"pai/internal/domain"
)

// convertValue maps a model.Value onto the backend-neutral result
func convertValue(v model.Value, warnings []string) *domain.QueryResult {
	res := &domain.QueryResult{Series: []domain.Series{}, Warnings: warnings}

	switch value := v.(type) {
	case model.Vector:
		res.Type = domain.ResultVector
		for _, s := range value {
			res.Series = append(res.Series, domain.Series{
				Labels:  metricLabels(s.Metric),
				Samples: []domain.Sample{{Time: s.Timestamp.Time().UTC(), Value: float64(s.Value)}},
			})
		}
	case model.Matrix:
		res.Type = domain.ResultMatrix
		for _, stream := range value {
			series := domain.Series{Labels: metricLabels(stream.Metric)}
			for _, pair := range stream.Values {
				series.Samples = append(series.Samples, domain.Sample{
					Time:  pair.Timestamp.Time().UTC(),
					Value: float64(pair.Value),
				})
			}
			res.Series = append(res.Series, series)
		}
	case *model.Scalar:
		res.Type = domain.ResultScalar
		res.Series = append(res.Series, domain.Series{
			Labels:  map[string]string{},
			Samples: []domain.Sample{{Time: value.Timestamp.Time().UTC(), Value: float64(value.Value)}},
		})
	case *model.String:
		res.Type = domain.ResultString
		f, _ := strconv.ParseFloat(value.Value, 64)
		res.Series = append(res.Series, domain.Series{
			Labels:  map[string]string{"value": value.Value},
			Samples: []domain.Sample{{Time: value.Timestamp.Time().UTC(), Value: f}},
		})
	}
	return res
}

func metricLabels(m model.Metric) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[string(k)] = string(v)
	}
	return out
}

func labelMap(ls model.LabelSet) map[string]string {
	if len(ls) == 0 {
		return nil
	}
	out := make(map[string]string, len(ls))
	for k, v := range ls {
		out[string(k)] = string(v)
	}
	return out
}
