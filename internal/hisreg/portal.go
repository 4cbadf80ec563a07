package hisreg

import (
	"github.com/hlop3z/hisdb/internal/ast"
	"github.com/hlop3z/hisdb/internal/engine"
)

func patientPortal() engine.Migration {
	return engine.Migration{
		ID:   "20240212080000_patient_portal",
		Name: "patient_portal",
		Up: []ast.Operation{
			table("PortalAccounts",
				guid("PatientId"),
				text("Email", 256),
				binary("PasswordHash", 64),
				optTimestamp("LastLoginAt"),
				flag("IsLocked", false),
			),
			fk("PortalAccounts", "PatientId", "Patients", ast.Cascade),
			ux("PortalAccounts", "Email"),
			ux("PortalAccounts", "PatientId"),

			table("PortalMessages",
				guid("PortalAccountId"),
				optGuid("RecipientUserId"),
				text("Subject", 200),
				text("Body", 0),
				timestamp("SentAt"),
				optTimestamp("ReadAt"),
			),
			fk("PortalMessages", "PortalAccountId", "PortalAccounts", ast.Cascade),
			fk("PortalMessages", "RecipientUserId", "Users", ast.SetNull),
			ix("PortalMessages", "PortalAccountId", "SentAt"),
		},
		Down: dropTables("PortalMessages", "PortalAccounts"),
	}
}
