package hisreg

import (
	"github.com/hlop3z/hisdb/internal/ast"
	"github.com/hlop3z/hisdb/internal/engine"
)

// laboratory carries two pairs of look-alike reference columns
// (PerformedBy/PerformedByUserId and MappedToLabRequestItemId/
// MappedLabRequestItemId). Both columns of a pair are kept as separate
// nullable references.
func laboratory() engine.Migration {
	return engine.Migration{
		ID:   "20240108080000_laboratory",
		Name: "laboratory",
		Up: []ast.Operation{
			table("LabTests",
				text("Code", 20),
				text("Name", 200),
				optText("Unit", 20),
				decimal("ReferenceLow", 18, 4, true),
				decimal("ReferenceHigh", 18, 4, true),
				flag("IsActive", true),
			),
			ux("LabTests", "Code"),

			table("LabRequests",
				guid("AdmissionId"),
				guid("RequestedByUserId"),
				timestamp("RequestedAt"),
				text("Priority", 10),
			),
			fk("LabRequests", "AdmissionId", "Admissions", ast.Cascade),
			fk("LabRequests", "RequestedByUserId", "Users", ast.Restrict),
			ix("LabRequests", "AdmissionId"),
			ix("LabRequests", "RequestedByUserId"),

			table("LabRequestItems",
				guid("LabRequestId"),
				guid("LabTestId"),
				text("Status", 20),
			),
			fk("LabRequestItems", "LabRequestId", "LabRequests", ast.Cascade),
			fk("LabRequestItems", "LabTestId", "LabTests", ast.Restrict),
			ix("LabRequestItems", "LabRequestId"),
			ix("LabRequestItems", "LabTestId"),

			table("LabResults",
				guid("LabRequestItemId"),
				text("Value", 100),
				decimal("NumericValue", 18, 4, true),
				optText("Flag", 2),
				timestamp("ResultedAt"),
				optGuid("PerformedByUserId"),
			),
			fk("LabResults", "LabRequestItemId", "LabRequestItems", ast.Cascade),
			fk("LabResults", "PerformedByUserId", "Users", ast.SetNull),
			ix("LabResults", "LabRequestItemId"),

			table("LabRawResults",
				text("InstrumentCode", 50),
				text("Payload", 0),
				timestamp("ReceivedAt"),
				optGuid("MappedToLabRequestItemId"),
				optGuid("MappedLabRequestItemId"),
			),
			fk("LabRawResults", "MappedToLabRequestItemId", "LabRequestItems", ast.SetNull),
			fk("LabRawResults", "MappedLabRequestItemId", "LabRequestItems", ast.SetNull),
			ix("LabRawResults", "MappedToLabRequestItemId"),
			ix("LabRawResults", "MappedLabRequestItemId"),

			table("LabQCResults",
				guid("LabTestId"),
				text("Level", 10),
				decimal("Value", 18, 4, false),
				timestamp("RunAt"),
				optGuid("PerformedBy"),
				optGuid("PerformedByUserId"),
			),
			fk("LabQCResults", "LabTestId", "LabTests", ast.Cascade),
			fk("LabQCResults", "PerformedBy", "Users", ast.SetNull),
			fk("LabQCResults", "PerformedByUserId", "Users", ast.SetNull),
			ix("LabQCResults", "LabTestId", "RunAt"),
		},
		Down: dropTables(
			"LabQCResults",
			"LabRawResults",
			"LabResults",
			"LabRequestItems",
			"LabRequests",
			"LabTests",
		),
	}
}
