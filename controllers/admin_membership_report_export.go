package controllers

import (
	"fmt"
	"time"

	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/services"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"github.com/tealeg/xlsx"
)

// reportLines flattens the report into label/value pairs shared by both
// export formats
func reportLines(report *services.MembershipReport) [][]string {
	lines := [][]string{
		{"Total Plans", fmt.Sprintf("%d", report.TotalPlans)},
		{"Active Plans", fmt.Sprintf("%d", report.ActivePlans)},
		{"Active Subscriptions", fmt.Sprintf("%d", report.Subscriptions[models.SubscriptionActive])},
		{"Canceled Subscriptions", fmt.Sprintf("%d", report.Subscriptions[models.SubscriptionCanceled])},
		{"Expired Subscriptions", fmt.Sprintf("%d", report.Subscriptions[models.SubscriptionExpired])},
		{"Successful Payments", fmt.Sprintf("%d", report.Transactions[models.PaymentSuccess])},
		{"Failed Payments", fmt.Sprintf("%d", report.Transactions[models.PaymentFailed])},
		{"Subscription Revenue", utils.FormatAmount(report.Revenue)},
	}
	if report.LatestTransaction != nil {
		lines = append(lines, []string{"Latest Payment", report.LatestTransaction.CreatedAt.Format("2006-01-02 15:04")})
	}
	return lines
}

// ExportReportExcel downloads the membership report as a spreadsheet
func (ctl *AdminMembershipController) ExportReportExcel(c *gin.Context) {
	utils.LogInfo("ExportReportExcel called")
	report, err := ctl.membership.Report(c.Request.Context())
	if err != nil {
		utils.LogError("Failed to build membership report: %v", err)
		utils.Fail(c, err)
		return
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Membership Report")
	if err != nil {
		utils.LogError("Failed to create Excel sheet: %v", err)
		utils.Fail(c, utils.InternalError(err))
		return
	}

	bold := xlsx.NewStyle()
	font := xlsx.DefaultFont()
	font.Bold = true
	bold.Font = *font

	titleRow := sheet.AddRow()
	titleRow.AddCell().SetString(utils.AppName + " - Membership Report")
	titleRow.Cells[0].SetStyle(bold)
	sheet.AddRow().AddCell().SetString("Generated: " + time.Now().UTC().Format("2006-01-02 15:04 MST"))
	sheet.AddRow()

	for _, line := range reportLines(report) {
		row := sheet.AddRow()
		row.AddCell().SetString(line[0])
		row.AddCell().SetString(line[1])
	}
	sheet.AddRow()

	headerRow := sheet.AddRow()
	for _, h := range []string{"Plan", "Slug", "Active Subscriptions"} {
		cell := headerRow.AddCell()
		cell.SetString(h)
		cell.SetStyle(bold)
	}
	for _, p := range report.SubscriptionsByPlan {
		row := sheet.AddRow()
		row.AddCell().SetString(p.Name)
		row.AddCell().SetString(p.Slug)
		row.AddCell().SetInt(int(p.Active))
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=membership_report.xlsx")
	if err := file.Write(c.Writer); err != nil {
		utils.LogError("Failed to write Excel file: %v", err)
		return
	}
	utils.LogInfo("Successfully generated Excel membership report")
}

// ExportReportPDF downloads the membership report as a PDF
func (ctl *AdminMembershipController) ExportReportPDF(c *gin.Context) {
	utils.LogInfo("ExportReportPDF called")
	report, err := ctl.membership.Report(c.Request.Context())
	if err != nil {
		utils.LogError("Failed to build membership report: %v", err)
		utils.Fail(c, err)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 12, utils.AppName+" - Membership Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 8, "Generated: "+time.Now().UTC().Format("2006-01-02 15:04 MST"))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 13)
	pdf.SetFillColor(220, 230, 250)
	pdf.CellFormat(100, 10, "Summary", "1", 0, "C", true, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 11)
	for _, line := range reportLines(report) {
		pdf.CellFormat(60, 8, line[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 8, line[1], "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(8)

	colWidths := []float64{70, 60, 50}
	pdf.SetFont("Arial", "B", 11)
	pdf.SetFillColor(200, 200, 200)
	for i, h := range []string{"Plan", "Slug", "Active Subscriptions"} {
		pdf.CellFormat(colWidths[i], 9, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	fill := false
	for _, p := range report.SubscriptionsByPlan {
		pdf.SetFillColor(230, 240, 255)
		pdf.CellFormat(colWidths[0], 8, p.Name, "1", 0, "L", fill, 0, "")
		pdf.CellFormat(colWidths[1], 8, p.Slug, "1", 0, "L", fill, 0, "")
		pdf.CellFormat(colWidths[2], 8, fmt.Sprintf("%d", p.Active), "1", 0, "R", fill, 0, "")
		pdf.Ln(-1)
		fill = !fill
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", "attachment; filename=membership_report.pdf")
	if err := pdf.Output(c.Writer); err != nil {
		utils.LogError("Failed to write PDF file: %v", err)
		return
	}
	utils.LogInfo("Successfully generated PDF membership report")
}
