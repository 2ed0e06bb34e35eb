package codec

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"pai/internal/audit"
	"pai/internal/domain"
	"pai/internal/provider"
)

// TableOf converts the result types of pai commands to tables
func TableOf(v any) (Tabular, bool) {
	switch v := v.(type) {
	case domain.SecretKeys:
		t := Table{Columns: []string{"KEY"}}
		for _, k := range v.Keys {
			t.Data = append(t.Data, []string{k})
		}
		return t, true

	case []provider.AdapterInfo:
		t := Table{Columns: []string{"NAME", "VERSION", "ROLE", "SOURCE", "CAPABILITIES"}}
		for _, a := range v {
			t.Data = append(t.Data, []string{a.Name, a.Version, dash(string(a.Role)), a.Source, strings.Join(a.Capabilities, ",")})
		}
		return t, true

	case []provider.CandidateHealth:
		t := Table{Columns: []string{"DOMAIN", "ADAPTER", "ROLE", "HEALTHY", "LATENCY", "MESSAGE"}}
		for _, h := range v {
			t.Data = append(t.Data, []string{
				string(h.Domain), h.Adapter, string(h.Role), strconv.FormatBool(h.Healthy),
				fmt.Sprintf("%dms", h.LatencyMs), h.Message,
			})
		}
		return t, true

	case *domain.QueryResult:
		t := Table{Columns: []string{"SERIES", "TIME", "VALUE"}}
		for _, s := range v.Series {
			for _, sample := range s.Samples {
				t.Data = append(t.Data, []string{
					formatLabels(s.Labels), timestamp(sample.Time), strconv.FormatFloat(sample.Value, 'g', -1, 64),
				})
			}
		}
		return t, true

	case []domain.Alert:
		t := Table{Columns: []string{"NAME", "STATE", "SEVERITY", "ACTIVE SINCE"}}
		for _, a := range v {
			since := "-"
			if a.ActiveAt != nil {
				since = timestamp(*a.ActiveAt)
			}
			t.Data = append(t.Data, []string{a.Name, string(a.State), dash(a.Severity), since})
		}
		return t, true

	case []domain.Target:
		t := Table{Columns: []string{"JOB", "URL", "HEALTH", "LAST ERROR"}}
		for _, tg := range v {
			t.Data = append(t.Data, []string{tg.Job, tg.URL, string(tg.Health), dash(tg.LastError)})
		}
		return t, true

	case []domain.Pipeline:
		t := Table{Columns: []string{"ID", "NAME", "PATH", "STATE"}}
		for _, p := range v {
			t.Data = append(t.Data, []string{p.ID, p.Name, dash(p.Path), dash(p.State)})
		}
		return t, true

	case []domain.Run:
		t := Table{Columns: []string{"ID", "NAME", "STATUS", "CONCLUSION", "BRANCH", "CREATED"}}
		for _, r := range v {
			t.Data = append(t.Data, runRow(r))
		}
		return t, true

	case *domain.Run:
		return Table{Columns: []string{"ID", "NAME", "STATUS", "CONCLUSION", "BRANCH", "CREATED"}, Data: [][]string{runRow(*v)}}, true

	case []domain.Artifact:
		t := Table{Columns: []string{"ID", "NAME", "SIZE", "EXPIRED"}}
		for _, a := range v {
			t.Data = append(t.Data, []string{a.ID, a.Name, strconv.FormatInt(a.SizeBytes, 10), strconv.FormatBool(a.Expired)})
		}
		return t, true

	case []domain.Issue:
		t := Table{Columns: []string{"ID", "STATE", "TITLE", "LABELS"}}
		for _, i := range v {
			t.Data = append(t.Data, issueRow(i))
		}
		return t, true

	case *domain.Issue:
		return Table{Columns: []string{"ID", "STATE", "TITLE", "LABELS"}, Data: [][]string{issueRow(*v)}}, true

	case []domain.Container:
		t := Table{Columns: []string{"NAMESPACE", "NAME", "IMAGE", "STATE", "READY", "RESTARTS"}}
		for _, c := range v {
			t.Data = append(t.Data, []string{
				dash(c.Namespace), c.Name, c.Image, c.State, strconv.FormatBool(c.Ready), strconv.Itoa(int(c.Restarts)),
			})
		}
		return t, true

	case []domain.Deployment:
		t := Table{Columns: []string{"NAMESPACE", "NAME", "READY", "AVAILABLE", "IMAGE"}}
		for _, d := range v {
			t.Data = append(t.Data, []string{
				d.Namespace, d.Name, fmt.Sprintf("%d/%d", d.Ready, d.Replicas), strconv.Itoa(int(d.Available)), dash(d.Image),
			})
		}
		return t, true

	case []domain.Host:
		t := Table{Columns: []string{"ADDRESS", "HOSTNAME", "MAC", "OPEN PORTS"}}
		for _, h := range v {
			ports := make([]string, len(h.OpenPorts))
			for i, p := range h.OpenPorts {
				ports[i] = strconv.Itoa(p)
			}
			t.Data = append(t.Data, []string{h.Address, dash(h.Hostname), dash(h.MAC), dash(strings.Join(ports, ","))})
		}
		return t, true

	case *domain.ProbeResult:
		state := "closed"
		if v.Open {
			state = "open"
		}
		t := Table{
			Columns: []string{"HOST", "PORT", "STATE", "SERVICE", "BANNER"},
			Data:    [][]string{{v.Host, strconv.Itoa(v.Port), state, dash(v.Service), dash(v.Banner)}},
		}
		for _, k := range slices.Sorted(maps.Keys(v.Details)) {
			t.Data = append(t.Data, []string{"", "", "", k, v.Details[k]})
		}
		return t, true

	case []audit.Entry:
		t := Table{}
		for _, e := range v {
			t.Data = append(t.Data, []string{e.String()})
		}
		return t, true
	}
	return nil, false
}

func runRow(r domain.Run) []string {
	return []string{r.ID, r.Name, string(r.Status), dash(r.Conclusion), dash(r.Branch), timestamp(r.CreatedAt)}
}

func issueRow(i domain.Issue) []string {
	return []string{i.ID, string(i.State), i.Title, dash(strings.Join(i.Labels, ","))}
}

func formatLabels(labels map[string]string) string {
	name := labels["__name__"]
	var parts []string
	for _, k := range slices.Sorted(maps.Keys(labels)) {
		if k == "__name__" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%q", k, labels[k]))
	}
	if len(parts) == 0 {
		return dash(name)
	}
	return name + "{" + strings.Join(parts, ", ") + "}"
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
