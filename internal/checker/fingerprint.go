package checker

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	wappalyzer "github.com/projectdiscovery/wappalyzergo"
)

var (
	wappalyzerClient   *wappalyzer.Wappalyze
	wappalyzerInitOnce sync.Once
	wappalyzerInitErr  error
)

func loadWappalyzer() (*wappalyzer.Wappalyze, error) {
	wappalyzerInitOnce.Do(func() {
		wappalyzerClient, wappalyzerInitErr = wappalyzer.New()
		if wappalyzerInitErr != nil {
			wappalyzerInitErr = fmt.Errorf("initialize wappalyzer: %w", wappalyzerInitErr)
		}
	})
	return wappalyzerClient, wappalyzerInitErr
}

// Technologies identifies the software stack behind a response from its
// headers and body. Names are sorted; versions are kept when detected
// (e.g. "Nginx:1.18.0").
func Technologies(h http.Header, body []byte) ([]string, error) {
	client, err := loadWappalyzer()
	if err != nil {
		return nil, err
	}

	detected := client.Fingerprint(h, body)
	if len(detected) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(detected))
	for name := range detected {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
