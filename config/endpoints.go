package config

import (
	"fmt"
	"net/url"
	"sort"
)

// Endpoint holds the device-specific search parameters.
type Endpoint struct {
	Base   string // search page URL
	Where  string // integrated search tab
	Mobile bool
}

// Endpoints maps device codes to their search page.
var Endpoints = map[string]Endpoint{
	"pc":     {"https://search.naver.com/search.naver", "nexearch", false},
	"mobile": {"https://m.search.naver.com/search.naver", "m", true},
}

// Tabs maps result tabs to their where parameter. The integrated tab is the
// device default.
var Tabs = map[string]string{
	"integrated": "",
	"blog":       "blog",
	"view":       "view",
	"cafe":       "article",
	"kin":        "kin",
	"news":       "news",
	"influencer": "influencer",
}

// SearchURL builds the result page URL for a device and tab.
func SearchURL(device, tab, query string) (string, error) {
	ep, ok := Endpoints[device]
	if !ok {
		return "", fmt.Errorf("unknown device %q", device)
	}
	where, ok := Tabs[tab]
	if !ok {
		return "", fmt.Errorf("unknown tab %q", tab)
	}
	if where == "" {
		where = ep.Where
	} else if ep.Mobile {
		where = "m_" + where
	}

	params := url.Values{}
	params.Set("where", where)
	params.Set("query", query)
	params.Set("sm", "tab_jum")
	return ep.Base + "?" + params.Encode(), nil
}

// Devices lists the known device codes in stable order.
func Devices() []string {
	out := make([]string, 0, len(Endpoints))
	for d := range Endpoints {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
