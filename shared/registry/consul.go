// Package registry announces the service to Consul so gateways can discover it.
package registry

import (
	"fmt"
	"net"
	"strconv"

	consul "github.com/hashicorp/consul/api"
	"github.com/rs/zerolog"
)

// ConsulRegistry registers and deregisters one service instance.
type ConsulRegistry struct {
	client *consul.Client
	logger *zerolog.Logger
}

// Registration describes the instance being announced.
type Registration struct {
	ID          string
	Name        string
	Address     string
	Port        int
	HealthURL   string
	Tags        []string
	CheckPeriod string
}

// NewConsulRegistry creates a registry talking to the agent at addr.
func NewConsulRegistry(addr string, logger *zerolog.Logger) (*ConsulRegistry, error) {
	cfg := consul.DefaultConfig()
	cfg.Address = addr

	client, err := consul.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create consul client: %w", err)
	}

	return &ConsulRegistry{client: client, logger: logger}, nil
}

// Register announces reg with an HTTP health check.
func (r *ConsulRegistry) Register(reg Registration) error {
	interval := reg.CheckPeriod
	if interval == "" {
		interval = "10s"
	}

	service := &consul.AgentServiceRegistration{
		ID:      reg.ID,
		Name:    reg.Name,
		Address: reg.Address,
		Port:    reg.Port,
		Tags:    reg.Tags,
	}
	if reg.HealthURL != "" {
		service.Check = &consul.AgentServiceCheck{
			HTTP:                           reg.HealthURL,
			Interval:                       interval,
			Timeout:                        "3s",
			DeregisterCriticalServiceAfter: "1m",
		}
	}

	if err := r.client.Agent().ServiceRegister(service); err != nil {
		return fmt.Errorf("register service %s: %w", reg.ID, err)
	}

	r.logger.Info().Str("service_id", reg.ID).Msg("registered with consul")
	return nil
}

// Deregister removes the instance with id.
func (r *ConsulRegistry) Deregister(id string) error {
	if err := r.client.Agent().ServiceDeregister(id); err != nil {
		return fmt.Errorf("deregister service %s: %w", id, err)
	}

	r.logger.Info().Str("service_id", id).Msg("deregistered from consul")
	return nil
}

// NewRegistration builds a Registration for a service listening on listenAddr
// (":8080" or "host:8080"); advertiseHost replaces an empty host.
func NewRegistration(name, listenAddr, advertiseHost string) (Registration, error) {
	host, portStr, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return Registration{}, fmt.Errorf("parse listen address %q: %w", listenAddr, err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Registration{}, fmt.Errorf("parse port %q: %w", portStr, err)
	}

	if host == "" {
		host = advertiseHost
	}
	if host == "" {
		host = "127.0.0.1"
	}

	return Registration{
		ID:        fmt.Sprintf("%s-%s-%d", name, host, port),
		Name:      name,
		Address:   host,
		Port:      port,
		HealthURL: fmt.Sprintf("http://%s/health", net.JoinHostPort(host, portStr)),
	}, nil
}
