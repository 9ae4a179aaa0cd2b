package app

import (
	"errors"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

// registerCollector registers collectors with the default registry.
// Duplicate registration happens when tests build several containers in
// one process; the first registration wins.
func registerCollector(cs ...prometheus.Collector) {
	for _, c := range cs {
		if err := prometheus.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				log.Printf("metrics register failed: %v", err)
			}
		}
	}
}
