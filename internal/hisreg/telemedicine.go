package hisreg

import (
	"github.com/hlop3z/hisdb/internal/ast"
	"github.com/hlop3z/hisdb/internal/engine"
)

func telemedicine() engine.Migration {
	return engine.Migration{
		ID:   "20240205080000_telemedicine",
		Name: "telemedicine",
		Up: []ast.Operation{
			table("TeleConsultations",
				guid("PatientId"),
				guid("ClinicianUserId"),
				timestamp("ScheduledAt"),
				optTimestamp("StartedAt"),
				optTimestamp("EndedAt"),
				optText("MeetingUrl", 500),
				text("Status", 20),
			),
			fk("TeleConsultations", "PatientId", "Patients", ast.Cascade),
			fk("TeleConsultations", "ClinicianUserId", "Users", ast.Restrict),
			ix("TeleConsultations", "PatientId"),
			ix("TeleConsultations", "ClinicianUserId", "ScheduledAt"),

			table("TeleConsultationNotes",
				guid("TeleConsultationId"),
				guid("AuthorUserId"),
				text("Note", 0),
				createdAt("CreatedAt"),
			),
			fk("TeleConsultationNotes", "TeleConsultationId", "TeleConsultations", ast.Cascade),
			fk("TeleConsultationNotes", "AuthorUserId", "Users", ast.Restrict),
			ix("TeleConsultationNotes", "TeleConsultationId"),
		},
		Down: dropTables("TeleConsultationNotes", "TeleConsultations"),
	}
}
