package psu

import (
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"sort"
)

// PortLister returns the names of all serial ports available on the host
type PortLister func() ([]string, error)

// ListPorts returns the names of all serial ports available on the host
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	sort.Strings(ports)
	return ports, nil
}

type PortDetails struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"isUsb"`
	VID          string `json:"vid"`
	PID          string `json:"pid"`
	SerialNumber string `json:"serialNumber"`
	Product      string `json:"product"`
}

// DetectPorts returns details about all serial ports available on the host
func DetectPorts() ([]PortDetails, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}

	result := make([]PortDetails, 0, len(ports))
	for _, port := range ports {
		result = append(result, PortDetails{
			Name:         port.Name,
			IsUSB:        port.IsUSB,
			VID:          port.VID,
			PID:          port.PID,
			SerialNumber: port.SerialNumber,
			Product:      port.Product,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}
