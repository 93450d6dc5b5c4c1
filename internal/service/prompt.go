package service

import "fmt"

// 期望模型返回的 JSON 结构（两种模态共用）
const scheduleSchemaExample = `{
    "title": "Schedule title if identifiable",
    "schedule": {
        "Monday": [{"time": "09:00-10:00", "subject": "Math", "room": "A101"}],
        "Tuesday": [{"time": "09:00-10:00", "subject": "English", "room": "B202"}],
        "Wednesday": [],
        "Thursday": [],
        "Friday": [],
        "Saturday": [],
        "Sunday": []
    }
}`

const imagePromptTemplate = `Please analyze this timetable image and extract the schedule information. Return a JSON object with the following structure:
%s
Include all seven weekday keys even when a day has no entries. Extract all visible time slots, subjects, and room numbers. If information is unclear, use your best judgment.`

const spreadsheetPromptTemplate = `Please analyze this Excel timetable data and convert it to a structured JSON format. The data is:

%s

Return a JSON object with the following structure:
%s

Include all seven weekday keys even when a day has no entries. Extract all time slots, subjects, and room information. Organize by weekdays. If the format is unclear, use your best judgment to structure the data appropriately.`

// ImagePrompt 图片模态的指令文本
func ImagePrompt() string {
	return fmt.Sprintf(imagePromptTemplate, scheduleSchemaExample)
}

// SpreadsheetPrompt 表格模态的指令文本，内嵌制表符分隔的表格内容
func SpreadsheetPrompt(sheetText string) string {
	return fmt.Sprintf(spreadsheetPromptTemplate, sheetText, scheduleSchemaExample)
}
