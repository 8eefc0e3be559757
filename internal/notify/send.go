package notify

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/nicholas-fedor/shoutrrr"
)

// Target holds a fully resolved notification target ready to send.
type Target struct {
	ServiceName string
	URL         string
	Message     string
	Params      map[string]string
}

// NotifyRef is a simplified notify target reference used by ResolveTargets.
type NotifyRef struct {
	ServiceName string
	Template    string
	Params      map[string]string
}

// ServiceDef is a simplified service definition used by ResolveTargets.
type ServiceDef struct {
	URL    string
	Params map[string]string
}

// ResolveTargets builds the list of notification targets from the notify
// list, service definitions, and template data. It renders the message
// template and param value templates for each target.
func ResolveTargets(
	notifyList []NotifyRef,
	services map[string]ServiceDef,
	defaultTemplate string,
	data TemplateData,
) ([]Target, error) {
	var targets []Target

	for _, ref := range notifyList {
		svc, ok := services[ref.ServiceName]
		if !ok {
			return nil, fmt.Errorf("unknown service %q", ref.ServiceName)
		}

		// Pick template: per-target override → default.
		tmplStr := defaultTemplate
		if ref.Template != "" {
			tmplStr = ref.Template
		}

		msg, err := Render(tmplStr, data)
		if err != nil {
			return nil, fmt.Errorf("rendering template for %s: %w", ref.ServiceName, err)
		}

		// Merge params: service base ← per-target override.
		merged := make(map[string]string)
		for k, v := range svc.Params {
			merged[k] = v
		}
		for k, v := range ref.Params {
			merged[k] = v
		}

		for k, v := range merged {
			rendered, err := Render(v, data)
			if err != nil {
				return nil, fmt.Errorf("rendering param %q for %s: %w", k, ref.ServiceName, err)
			}
			merged[k] = rendered
		}

		targets = append(targets, Target{
			ServiceName: ref.ServiceName,
			URL:         svc.URL,
			Message:     msg,
			Params:      merged,
		})
	}

	return targets, nil
}

// Send delivers a notification to a single target via Shoutrrr.
func Send(t Target) error {
	u, err := applyParams(t.URL, t.Params)
	if err != nil {
		return fmt.Errorf("building url for %s: %w", t.ServiceName, err)
	}

	sender, err := shoutrrr.CreateSender(u)
	if err != nil {
		return fmt.Errorf("creating sender for %s: %w", t.ServiceName, err)
	}

	errs := sender.Send(t.Message, nil)
	for _, e := range errs {
		if e != nil {
			return fmt.Errorf("sending to %s: %w", t.ServiceName, e)
		}
	}

	return nil
}

// Validate checks that the target URL resolves to a known Shoutrrr service
// without sending anything.
func Validate(t Target) error {
	u, err := applyParams(t.URL, t.Params)
	if err != nil {
		return fmt.Errorf("building url for %s: %w", t.ServiceName, err)
	}
	if _, err := shoutrrr.CreateSender(u); err != nil {
		return fmt.Errorf("invalid service %s: %w", t.ServiceName, err)
	}
	return nil
}

// applyParams merges params into the URL query string. Keys are encoded in
// sorted order.
func applyParams(raw string, params map[string]string) (string, error) {
	if len(params) == 0 {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q.Set(k, params[k])
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
