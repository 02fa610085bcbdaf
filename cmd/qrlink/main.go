// Command qrlink builds the launch URL a clinic prints on its QR
// poster and renders the code in the terminal for a quick check.
package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"

	"github.com/mdp/qrterminal/v3"
)

func main() {
	baseURL := flag.String("base-url", "http://localhost:8080/booking/sessions", "wizard launch endpoint")
	doctorID := flag.String("doctor-id", "", "doctor identifier (required)")
	workplaceID := flag.String("workplace-id", "", "workplace identifier (required)")
	doctorName := flag.String("doctor-name", "", "doctor display name")
	specialization := flag.String("specialization", "", "doctor specialization")
	clinicName := flag.String("clinic-name", "", "clinic display name")
	clinicAddress := flag.String("clinic-address", "", "clinic street address")
	city := flag.String("city", "", "clinic city")
	flag.Parse()

	if *doctorID == "" || *workplaceID == "" {
		fmt.Fprintln(os.Stderr, "both -doctor-id and -workplace-id are required")
		flag.Usage()
		os.Exit(2)
	}

	launch, err := url.Parse(*baseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid base URL: %v\n", err)
		os.Exit(2)
	}

	q := launch.Query()
	q.Set("doctorId", *doctorID)
	q.Set("workplaceId", *workplaceID)
	setIfPresent(q, "doctorName", *doctorName)
	setIfPresent(q, "specialization", *specialization)
	setIfPresent(q, "clinicName", *clinicName)
	setIfPresent(q, "clinicAddress", *clinicAddress)
	setIfPresent(q, "city", *city)
	launch.RawQuery = q.Encode()

	link := launch.String()
	fmt.Println(link)
	fmt.Println()
	qrterminal.GenerateHalfBlock(link, qrterminal.L, os.Stdout)
}

func setIfPresent(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
