package resources

import (
	"github.com/ukydev/fleet-tolls/internal/listing"
	"github.com/ukydev/fleet-tolls/internal/models"
)

var dateFilters = []Filter{
	{Param: "from", Upstream: "startDate", Kind: FilterDate},
	{Param: "to", Upstream: "endDate", Kind: FilterDate},
	{Param: "status", Upstream: "paymentStatus", Kind: FilterPaymentStatus},
}

var Tolls = Definition[models.Toll]{
	Name:  "tolls",
	Path:  "/tolls",
	Title: "Tolls",
	Filters: append([]Filter{
		{Param: "plate", Upstream: "plateNumber", Kind: FilterPlate},
		{Param: "state", Upstream: "plateState", Kind: FilterState},
		{Param: "agency", Upstream: "agency"},
		{Param: "booking", Upstream: "bookingNumber"},
	}, dateFilters...),
	Columns: []listing.Column[models.Toll]{
		{Key: "plateNumber", Header: "Plate", Value: func(t models.Toll) any { return t.PlateNumber }},
		{Key: "plateState", Header: "State", Value: func(t models.Toll) any { return t.PlateState }},
		{Key: "agency", Header: "Agency", Value: func(t models.Toll) any { return t.Agency }},
		{Key: "transactionDate", Header: "Transaction Date", Value: func(t models.Toll) any { return t.TransactionDate.Time }},
		{Key: "postingDate", Header: "Posting Date", Value: func(t models.Toll) any { return t.PostingDate.Time }},
		{Key: "amount", Header: "Amount", Value: func(t models.Toll) any { return t.Amount }},
		{Key: "paymentStatus", Header: "Payment Status", Value: func(t models.Toll) any { return string(t.PaymentStatus) }},
		{Key: "isCompleted", Header: "Completed", Value: func(t models.Toll) any { return t.IsCompleted }},
		{Key: "bookingNumber", Header: "Booking", Value: func(t models.Toll) any { return t.BookingNumber }},
	},
}

var Violations = Definition[models.ParkingViolation]{
	Name:  "parking-violations",
	Path:  "/parking-violations",
	Title: "Parking Violations",
	Filters: append([]Filter{
		{Param: "plate", Upstream: "tag", Kind: FilterPlate},
		{Param: "state", Upstream: "state", Kind: FilterState},
		{Param: "citation", Upstream: "citationNumber"},
		{Param: "agency", Upstream: "agency"},
	}, dateFilters...),
	Columns: []listing.Column[models.ParkingViolation]{
		{Key: "citationNumber", Header: "Citation", Value: func(v models.ParkingViolation) any { return v.CitationNumber }},
		{Key: "noticeNumber", Header: "Notice", Value: func(v models.ParkingViolation) any { return v.NoticeNumber }},
		{Key: "agency", Header: "Agency", Value: func(v models.ParkingViolation) any { return v.Agency }},
		{Key: "tag", Header: "Plate", Value: func(v models.ParkingViolation) any { return v.Tag }},
		{Key: "state", Header: "State", Value: func(v models.ParkingViolation) any { return v.State }},
		{Key: "issueDate", Header: "Issued", Value: func(v models.ParkingViolation) any { return v.IssueDate.Time }},
		{Key: "amount", Header: "Amount", Value: func(v models.ParkingViolation) any { return v.Amount }},
		{Key: "currency", Header: "Currency", Value: func(v models.ParkingViolation) any { return v.Currency }},
		{Key: "paymentStatus", Header: "Payment Status", Value: func(v models.ParkingViolation) any { return string(v.PaymentStatus) }},
		{Key: "fineType", Header: "Fine Type", Value: func(v models.ParkingViolation) any { return v.FineType }},
		{Key: "bookingNumber", Header: "Booking", Value: func(v models.ParkingViolation) any { return v.BookingNumber }},
	},
}

var EZPass = Definition[models.EZPassTransaction]{
	Name:  "ezpass",
	Path:  "/ezpass",
	Title: "E-ZPass Transactions",
	Filters: []Filter{
		{Param: "plate", Upstream: "plateNumber", Kind: FilterPlate},
		{Param: "vin", Upstream: "vin"},
		{Param: "from", Upstream: "startDate", Kind: FilterDate},
		{Param: "to", Upstream: "endDate", Kind: FilterDate},
	},
	Columns: []listing.Column[models.EZPassTransaction]{
		{Key: "vin", Header: "VIN", Value: func(e models.EZPassTransaction) any { return e.VIN }},
		{Key: "plateNumber", Header: "Plate", Value: func(e models.EZPassTransaction) any { return e.PlateNumber }},
		{Key: "tollAuthority", Header: "Authority", Value: func(e models.EZPassTransaction) any { return e.TollAuthority }},
		{Key: "entryPlaza", Header: "Entry Plaza", Value: func(e models.EZPassTransaction) any { return e.EntryPlaza }},
		{Key: "exitPlaza", Header: "Exit Plaza", Value: func(e models.EZPassTransaction) any { return e.ExitPlaza }},
		{Key: "entryTime", Header: "Entry", Value: func(e models.EZPassTransaction) any { return e.EntryTime.Time }},
		{Key: "exitTime", Header: "Exit", Value: func(e models.EZPassTransaction) any { return e.ExitTime.Time }},
		{Key: "amount", Header: "Amount", Value: func(e models.EZPassTransaction) any { return e.Amount }},
	},
}

var Invoices = Definition[models.Invoice]{
	Name:  "invoices",
	Path:  "/invoices",
	Title: "Invoices",
	Filters: []Filter{
		{Param: "company", Upstream: "companyId"},
		{Param: "status", Upstream: "status"},
		{Param: "from", Upstream: "startDate", Kind: FilterDate},
		{Param: "to", Upstream: "endDate", Kind: FilterDate},
	},
	Columns: []listing.Column[models.Invoice]{
		{Key: "id", Header: "Invoice", Value: func(i models.Invoice) any { return i.ID }},
		{Key: "companyName", Header: "Company", Value: func(i models.Invoice) any { return i.CompanyName }},
		{Key: "date", Header: "Date", Value: func(i models.Invoice) any { return i.Date.Time }},
		{Key: "status", Header: "Status", Value: func(i models.Invoice) any { return string(i.Status) }},
		{Key: "total", Header: "Total", Value: func(i models.Invoice) any { return i.Detail().Totals.Total }},
		{Key: "unpaid", Header: "Unpaid", Value: func(i models.Invoice) any { return i.Detail().Totals.Unpaid }},
	},
}

var Companies = Definition[models.Company]{
	Name:  "companies",
	Path:  "/companies",
	Title: "Companies",
	Filters: []Filter{
		{Param: "state", Upstream: "state", Kind: FilterState},
	},
	Columns: []listing.Column[models.Company]{
		{Key: "name", Header: "Name", Value: func(c models.Company) any { return c.Name }},
		{Key: "state", Header: "State", Value: func(c models.Company) any { return c.State }},
		{Key: "isActive", Header: "Active", Value: func(c models.Company) any { return c.IsActive }},
	},
}

// Vehicles is only read to join NYC open data onto the fleet.
var Vehicles = Definition[models.Vehicle]{
	Name:  "vehicles",
	Path:  "/vehicles",
	Title: "Vehicles",
	Columns: []listing.Column[models.Vehicle]{
		{Key: "plateNumber", Header: "Plate", Value: func(v models.Vehicle) any { return v.PlateNumber }},
		{Key: "plateState", Header: "State", Value: func(v models.Vehicle) any { return v.PlateState }},
		{Key: "vin", Header: "VIN", Value: func(v models.Vehicle) any { return v.VIN }},
		{Key: "make", Header: "Make", Value: func(v models.Vehicle) any { return v.Make }},
		{Key: "model", Header: "Model", Value: func(v models.Vehicle) any { return v.Model }},
	},
}

// LineItemColumns render an invoice's line items.
var LineItemColumns = []listing.Column[models.InvoiceLineItem]{
	{Key: "kind", Header: "Type", Value: func(i models.InvoiceLineItem) any { return string(i.Kind) }},
	{Key: "bookingNumber", Header: "Booking", Value: func(i models.InvoiceLineItem) any { return i.BookingNumber }},
	{Key: "date", Header: "Date", Value: func(i models.InvoiceLineItem) any { return i.Date.Time }},
	{Key: "description", Header: "Description", Value: func(i models.InvoiceLineItem) any { return i.Description }},
	{Key: "amount", Header: "Amount", Value: func(i models.InvoiceLineItem) any { return i.Amount }},
	{Key: "paymentStatus", Header: "Payment Status", Value: func(i models.InvoiceLineItem) any { return string(i.PaymentStatus) }},
}

// NYCColumns search and sort the joined open-data results.
var NYCColumns = []listing.Column[models.VehicleViolations]{
	{Key: "plateNumber", Header: "Plate", Value: func(v models.VehicleViolations) any { return v.Vehicle.PlateNumber }},
	{Key: "vin", Header: "VIN", Value: func(v models.VehicleViolations) any { return v.Vehicle.VIN }},
	{Key: "violations", Header: "Violations", Value: func(v models.VehicleViolations) any { return len(v.Violations) }},
	{Key: "totalDue", Header: "Amount Due", Value: func(v models.VehicleViolations) any { return v.TotalDue }},
}
