package render

import "github.com/Zaad1704/HNV1-sub001/internal/models"

// Column is one output column: a header and the dot path it reads.
type Column struct {
	Header string
	Path   string
}

var defaultColumns = map[models.ExportType][]Column{
	models.ExportTypeTenants: {
		{"Name", "name"},
		{"Email", "email"},
		{"Phone", "phone"},
		{"Property", "propertyId.name"},
		{"Unit", "unit"},
		{"Status", "status"},
		{"Rent", "rentAmount"},
		{"Lease Start", "leaseStartDate"},
	},
	models.ExportTypeProperties: {
		{"Name", "name"},
		{"Address", "address"},
		{"Units", "numberOfUnits"},
		{"Status", "status"},
		{"Created", "createdAt"},
	},
	models.ExportTypePayments: {
		{"Tenant", "tenantId.name"},
		{"Property", "propertyId.name"},
		{"Amount", "amount"},
		{"Payment Date", "paymentDate"},
		{"Rent Month", "rentMonth"},
		{"Method", "paymentMethod"},
		{"Status", "status"},
	},
	models.ExportTypeExpenses: {
		{"Description", "description"},
		{"Category", "category"},
		{"Property", "propertyId.name"},
		{"Amount", "amount"},
		{"Date", "date"},
	},
	models.ExportTypeMaintenance: {
		{"Description", "description"},
		{"Property", "propertyId.name"},
		{"Tenant", "tenantId.name"},
		{"Priority", "priority"},
		{"Status", "status"},
		{"Estimated Cost", "estimatedCost"},
		{"Created", "createdAt"},
	},
	models.ExportTypeRentCollection: {
		{"Year", "period.year"},
		{"Month", "period.month"},
		{"Tenant", "name"},
		{"Property", "property"},
		{"Unit", "unit"},
		{"Rent Due", "rentDue"},
		{"Late Fees", "lateFees"},
		{"Total Owed", "totalOwed"},
		{"Amount Paid", "amountPaid"},
		{"Due Date", "dueDate"},
		{"Days Late", "daysLate"},
		{"Status", "status"},
	},
}

// ColumnsFor returns the columns of an export. Explicit fields win over the
// type's defaults and use their path as header.
func ColumnsFor(exportType models.ExportType, fields []string) []Column {
	if len(fields) > 0 {
		cols := make([]Column, len(fields))
		for i, f := range fields {
			cols[i] = Column{Header: f, Path: f}
		}
		return cols
	}
	return defaultColumns[exportType]
}
