package main

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-invoice/internal/auth"
)

// seedNamespace keeps generated ids stable so the seeder can be re-run.
var seedNamespace = uuid.MustParse("0b7f3c1e-52a4-4d8e-a1f6-93c2d0e4b785")

func seedID(parts ...string) string {
	key := ""
	for _, p := range parts {
		key += p + "|"
	}
	return uuid.NewSHA1(seedNamespace, []byte(key)).String()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type client struct {
	ClientID string
	Name     string
	Role     auth.Role
}

type tripRow struct {
	Day         int
	CompanyRate string
	VendorRate  string
	GuardPrice  string
	Penalty     string
	AddOn       string
	Toll        string
	Zone        string
	ZoneType    string
	VehicleType string
}

var demoClients = []client{
	{"demo-company", "Demo company console", auth.RoleCompany},
	{"demo-vendor", "Demo vendor portal", auth.RoleCounterparty},
	{"demo-admin", "Demo administrator", auth.RoleAdmin},
}

var demoTrips = []tripRow{
	{1, "1200", "950", "0", "0", "0", "60", "Whitefield", "City", "Sedan"},
	{1, "1200", "950", "150", "0", "0", "60", "Whitefield", "City", "Sedan"},
	{2, "1500", "1200", "0", "0", "100", "0", "Electronic City", "City", "SUV"},
	{3, "1200", "900", "150", "200", "0", "60", "Whitefield", "City", "Sedan"},
	{4, "4200", "3600", "0", "0", "250", "180", "Mysuru", "Outstation", "SUV"},
	{5, "1500", "1200", "0", "0", "0", "0", "Hebbal", "Airport", "SUV"},
	{6, "1350", "1000", "0", "0", "0", "0", "Hebbal", "Airport", "Sedan"},
	{8, "1200", "950", "150", "0", "0", "60", "Whitefield", "City", "Sedan"},
	{9, "4200", "3600", "0", "300", "250", "180", "Mysuru", "Outstation", "SUV"},
	{10, "900", "700", "0", "0", "0", "0", "", "", ""},
}

func seed(db execer, secret string) error {
	companyID := seedID("company", "demo")
	counterpartyID := seedID("company", "vendor")

	fmt.Println("Seeding companies...")
	for _, c := range []struct{ id, name, state, gstin string }{
		{companyID, "Demo Fleet Services Pvt Ltd", "KA", "29ABCDE1234F1Z5"},
		{counterpartyID, "Demo Vendor Cabs", "TN", "33ABCDE1234F1Z9"},
	} {
		if _, err := db.Exec(`
			INSERT INTO companies (id, name, state_code, gstin)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, state_code = EXCLUDED.state_code, gstin = EXCLUDED.gstin;
		`, c.id, c.name, c.state, c.gstin); err != nil {
			return fmt.Errorf("seed company %s: %w", c.name, err)
		}
	}

	fmt.Println("Seeding API clients...")
	hash, err := auth.HashSecret(secret)
	if err != nil {
		return fmt.Errorf("hash client secret: %w", err)
	}
	for _, c := range demoClients {
		owner := companyID
		if c.Role == auth.RoleCounterparty {
			owner = counterpartyID
		}
		if _, err := db.Exec(`
			INSERT INTO api_clients (id, company_id, client_id, name, secret_hash, role)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (client_id) DO UPDATE SET secret_hash = EXCLUDED.secret_hash, role = EXCLUDED.role, active = TRUE;
		`, seedID("client", c.ClientID), owner, c.ClientID, c.Name, hash, string(c.Role)); err != nil {
			return fmt.Errorf("seed client %s: %w", c.ClientID, err)
		}
	}

	fmt.Println("Seeding invoice settings...")
	if _, err := db.Exec(`
		INSERT INTO invoice_settings (company_id, tax_mode, discount_mode, discount_basis, round_off, additional_charges, number_prefix)
		VALUES ($1, 'group', 'none', 'percentage', FALSE, TRUE, 'INV')
		ON CONFLICT (company_id) DO NOTHING;
	`, companyID); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}

	fmt.Println("Seeding trips...")
	start := time.Now().UTC().AddDate(0, 0, -14).Truncate(24 * time.Hour)
	for i, t := range demoTrips {
		_, err := db.Exec(`
			INSERT INTO trips (id, company_id, trip_date, company_rate, vendor_rate, company_guard_price, vendor_guard_price,
				company_penalty, vendor_penalty, add_on_rate, toll_charge,
				zone_id, zone_name, zone_type_id, zone_type_name, vehicle_type_id, vehicle_type_name)
			VALUES ($1, $2, $3, $4, $5, $6, $6, $7, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT (id) DO NOTHING;
		`,
			seedID("trip", fmt.Sprint(i)), companyID, start.AddDate(0, 0, t.Day).Format("2006-01-02"),
			t.CompanyRate, t.VendorRate, t.GuardPrice, t.Penalty, t.AddOn, t.Toll,
			refID("zone", t.Zone), nullable(t.Zone),
			refID("zone-type", t.ZoneType), nullable(t.ZoneType),
			refID("vehicle", t.VehicleType), nullable(t.VehicleType),
		)
		if err != nil {
			log.Printf("Failed to seed trip %d: %v", i, err)
		}
	}
	return nil
}

func refID(kind, name string) sql.NullString {
	if name == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: seedID(kind, name), Valid: true}
}

func nullable(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
