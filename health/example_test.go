package health_test

import (
	"fmt"
	"net/http"

	"github.com/jonwraymond/backstop/health"
	"github.com/jonwraymond/backstop/resilience"
)

func ExampleMonitor_Check() {
	m := resilience.NewManager(resilience.ManagerConfig{})
	defer m.Close()

	m.Register(resilience.Backend{Name: "primary-llm"})

	mon := health.NewMonitor(m)
	result, _ := mon.Check("primary-llm")

	fmt.Println("Status:", result.Status)
	fmt.Println("Circuit:", result.Detail.Circuit)
	// Output:
	// Status: healthy
	// Circuit: closed
}

func ExampleMonitor_CheckAll() {
	m := resilience.NewManager(resilience.ManagerConfig{})
	defer m.Close()

	m.Register(resilience.Backend{Name: "primary-llm"})
	m.Register(resilience.Backend{Name: "local-llm"})

	mon := health.NewMonitor(m)
	results := mon.CheckAll()

	fmt.Println("Backends:", len(results))
	fmt.Println("Overall:", health.Overall(results))
	// Output:
	// Backends: 2
	// Overall: healthy
}

func ExampleMonitor_Routes() {
	m := resilience.NewManager(resilience.ManagerConfig{})
	defer m.Close()

	mux := http.NewServeMux()
	health.NewMonitor(m).Routes(mux)

	fmt.Println("Probes registered")
	// Output:
	// Probes registered
}
