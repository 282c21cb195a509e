package stores_test

import (
	"context"
	"fmt"
	"log"

	"github.com/cityhospital/hms/pkg/stores"
)

// ExampleNewSQLiteStore demonstrates creating and initializing a new SQLite store.
func ExampleNewSQLiteStore() {
	store, err := stores.NewSQLiteStore(stores.Config{
		Path: stores.MemoryPath, // Use in-memory database for example
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		log.Fatal(err)
	}

	// Create the patients, staff and appointments tables
	if err := store.Migrate(ctx); err != nil {
		log.Fatal(err)
	}

	defer store.Close()

	fmt.Println("Store initialized successfully")
	// Output: Store initialized successfully
}

// ExampleSQLiteStore_AddPatient demonstrates registering a patient.
func ExampleSQLiteStore_AddPatient() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: stores.MemoryPath})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	patient := &stores.Patient{
		Name:     "Asha Rao",
		DOB:      "1990-01-01",
		Gender:   "Female",
		Problem:  "Fever",
		MobileNo: "9998887777",
	}
	if err := store.AddPatient(ctx, patient); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Registered patient %d: %s\n", patient.ID, patient.Name)
	// Output: Registered patient 1: Asha Rao
}

// ExampleSQLiteStore_Query demonstrates running a raw query.
func ExampleSQLiteStore_Query() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: stores.MemoryPath})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	_, err := store.Execute(ctx,
		"INSERT INTO patients (name, dob, gender, problem, mobile_no) VALUES (?, ?, ?, ?, ?)",
		"Asha Rao", "1990-01-01", "Female", "Fever", "9998887777",
	)
	if err != nil {
		log.Fatal(err)
	}

	rows, err := store.Query(ctx, "SELECT id, name, problem FROM patients")
	if err != nil {
		log.Fatal(err)
	}

	for _, row := range rows {
		fmt.Println(row...)
	}
	// Output: 1 Asha Rao Fever
}

// ExampleSQLiteStore_AddAppointment demonstrates that appointments require a
// registered patient.
func ExampleSQLiteStore_AddAppointment() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: stores.MemoryPath})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	err := store.AddAppointment(ctx, &stores.Appointment{
		PatientID: 999,
		Date:      "2024-05-01",
		Time:      "10:30",
		Details:   "Checkup",
	})

	fmt.Println(stores.IsNotFound(err))
	// Output: true
}
