package main

import (
	"fmt"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/MichalKokolus/chatbot-advisor/pkg/app"
)

// program adapts app.Run to the service manager's start/stop protocol.
type program struct {
	configPath string
	errCh      chan error
}

func (p *program) Start(service.Service) error {
	p.errCh = make(chan error, 1)
	go func() {
		p.errCh <- app.Run(app.RunParams{
			ConfigPath: p.configPath,
			Version:    version,
			Commit:     commit,
			Date:       date,
		})
	}()
	return nil
}

func (p *program) Stop(service.Service) error {
	// app.Run exits on SIGTERM, which the service manager sends alongside
	// this call. Nothing else to tear down.
	return nil
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the advisor as a system service",
	}

	var configPath string
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	newService := func() (service.Service, error) {
		args := []string{"service", "run"}
		if configPath != "" {
			args = append(args, "--config", configPath)
		}
		return service.New(&program{configPath: configPath}, &service.Config{
			Name:        "chatbot-advisor",
			DisplayName: "Chatbot Advisor",
			Description: "Conversational wellbeing advisor HTTP service",
			Arguments:   args,
		})
	}

	control := func(action string) *cobra.Command {
		return &cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the system service", action),
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				svc, err := newService()
				if err != nil {
					return err
				}
				if err := service.Control(svc, action); err != nil {
					return err
				}
				fmt.Printf("Service %s: done\n", action)
				return nil
			},
		}
	}

	run := &cobra.Command{
		Use:    "run",
		Short:  "Run under the service manager (invoked by the manager itself)",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			return svc.Run()
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show service status",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			st, err := svc.Status()
			if err != nil {
				return err
			}
			switch st {
			case service.StatusRunning:
				fmt.Println("running")
			case service.StatusStopped:
				fmt.Println("stopped")
			default:
				fmt.Println("unknown")
			}
			return nil
		},
	}

	cmd.AddCommand(control("install"), control("uninstall"), control("start"),
		control("stop"), control("restart"), run, status)
	return cmd
}
