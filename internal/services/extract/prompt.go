package extract

// ExtractionPrompt instructs the model to emit candidate events as strict
// JSON. The shape mirrors the candidate payload decoded by ParseList.
const ExtractionPrompt = `You extract event listings from web page text.

Return a JSON object with a single key "events" holding an array. Each array
element describes one event:

{
  "teacher": {"first_name": "", "last_name": ""},
  "venue": {"name": "", "address_line1": "", "address_line2": "", "postal_code": "", "city": "", "country": ""},
  "event": {
    "title": "",
    "description": "",
    "practice": "",
    "source_url": "",
    "is_online": false,
    "online_url": "",
    "price_normal": 0,
    "price_reduced": 0,
    "currency": "",
    "start_date": "YYYY-MM-DD",
    "end_date": "YYYY-MM-DD",
    "start_time": "HH:MM",
    "end_time": "HH:MM",
    "is_recurring": false,
    "recurrence_rule": {"pattern": "weekly|biweekly|monthly", "day_of_week": "monday", "week_of_month": 1, "range_start": "YYYY-MM-DD", "range_end": "YYYY-MM-DD"}
  }
}

Rules:
- Omit any field you cannot determine; never invent values.
- Omit "venue" entirely for online-only events and set "is_online" true.
- Set "is_recurring" true and fill "recurrence_rule" only for repeating
  schedules described in the text.
- Prices are numbers without currency symbols; put the ISO code in
  "currency".
- Return {"events": []} when the page lists no events.`
