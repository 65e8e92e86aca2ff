package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"writ_docket_go/models"
)

func fieldNames(err error) []string {
	verr, ok := err.(*ValidationError)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		names = append(names, f.Field)
	}
	return names
}

func TestDecodeProceedingPayload(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantFields []string
	}{
		{
			name: "argument single object",
			body: `{"case":"c1","type":"ARGUMENT","hearingDetails":{"dateOfHearing":"2024-05-02","judgeName":"J. Sharma","courtNumber":"12"},
				"argumentDetails":{"argumentBy":"AAG","argumentWith":"Counsel","nextDateOfHearing":"2024-06-01"}}`,
		},
		{
			name: "argument missing next hearing date",
			body: `{"case":"c1","type":"ARGUMENT","hearingDetails":{"dateOfHearing":"2024-05-02"},
				"argumentDetails":[{"argumentBy":"AAG","argumentWith":"Counsel"}]}`,
			wantFields: []string{"argumentDetails[0].nextDateOfHearing"},
		},
		{
			name: "notice by format requires format fields",
			body: `{"case":"c1","type":"NOTICE_OF_MOTION","hearingDetails":{"dateOfHearing":"2024-05-02"},
				"noticeOfMotion":{"attendanceMode":"BY_FORMAT","details":"Notice issued"}}`,
			wantFields: []string{
				"noticeOfMotion[0].formatSubmitted",
				"noticeOfMotion[0].formatFilledBy.name",
				"noticeOfMotion[0].aagDgWhoWillAppear",
			},
		},
		{
			name: "notice by person",
			body: `{"case":"c1","type":"NOTICE_OF_MOTION","hearingDetails":{"dateOfHearing":"2024-05-02"},
				"noticeOfMotion":{"attendanceMode":"BY_PERSON","details":"Present","appearingAGDetails":"DAG Kaur",
				"attendingOfficerDetails":"SI Singh","investigatingOfficer":{"name":"SI Singh"}}}`,
		},
		{
			name: "reply filed requires filing date",
			body: `{"case":"c1","type":"TO_FILE_REPLY","hearingDetails":{"dateOfHearing":"2024-05-02"},
				"replyTracking":{"replyFiled":true}}`,
			wantFields: []string{"replyTracking[0].replyFilingDate"},
		},
		{
			name: "reply tracking may be omitted",
			body: `{"case":"c1","type":"TO_FILE_REPLY","hearingDetails":{"dateOfHearing":"2024-05-02"}}`,
		},
		{
			name:       "finalized proceeding requires hearing details",
			body:       `{"case":"c1","type":"DECISION","decisionDetails":{"writStatus":"ALLOWED"}}`,
			wantFields: []string{"hearingDetails"},
		},
		{
			name: "draft may omit hearing details and payload",
			body: `{"case":"c1","type":"DECISION","draft":true}`,
		},
		{
			name:       "draft payload is still validated",
			body:       `{"case":"c1","type":"DECISION","draft":true,"decisionDetails":{"remarks":"later"}}`,
			wantFields: []string{"decisionDetails[0].writStatus"},
		},
		{
			name: "empty date string is absent",
			body: `{"case":"c1","type":"DECISION","draft":true,"hearingDetails":{"dateOfHearing":""}}`,
		},
		{
			name:       "invalid date string is reported",
			body:       `{"case":"c1","type":"DECISION","draft":true,"hearingDetails":{"dateOfHearing":"tomorrow"}}`,
			wantFields: []string{"hearingDetails.dateOfHearing"},
		},
		{
			name: "unknown fields at every level",
			body: `{"case":"c1","type":"DECISION","draft":true,"extra":1,"hearingDetails":{"room":"4"},
				"decisionDetails":[{"writStatus":"ALLOWED","judge":"x"}]}`,
			wantFields: []string{"decisionDetails[0].judge", "extra", "hearingDetails.room"},
		},
		{
			name: "payload of another type",
			body: `{"case":"c1","type":"DECISION","hearingDetails":{"dateOfHearing":"2024-05-02"},
				"decisionDetails":{"writStatus":"ALLOWED"},"argumentDetails":{"argumentBy":"a","argumentWith":"b","nextDateOfHearing":"2024-06-01"}}`,
			wantFields: []string{"argumentDetails"},
		},
		{
			name:       "empty list",
			body:       `{"case":"c1","type":"DECISION","hearingDetails":{"dateOfHearing":"2024-05-02"},"decisionDetails":[]}`,
			wantFields: []string{"decisionDetails"},
		},
		{
			name:       "unknown type",
			body:       `{"case":"c1","type":"HEARING","draft":true}`,
			wantFields: []string{"type"},
		},
		{
			name:       "errors are collected",
			body:       `{"type":"ANY_OTHER","hearingDetails":{"dateOfHearing":"2024-05-02"},"anyOtherDetails":{"details":"x"}}`,
			wantFields: []string{"case", "anyOtherDetails[0].attendingOfficerDetails", "anyOtherDetails[0].appearingAGDetails", "anyOtherDetails[0].officerDetails.name"},
		},
		{
			name:       "wrong json type",
			body:       `{"case":"c1","type":"DECISION","draft":"yes"}`,
			wantFields: []string{"draft"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := DecodeProceedingPayload([]byte(tt.body))
			if len(tt.wantFields) == 0 {
				require.NoError(t, err)
				require.NotNil(t, payload)
				return
			}
			require.Error(t, err)
			assert.ElementsMatch(t, tt.wantFields, fieldNames(err))
		})
	}
}

func TestProceedingPayloadSanitizes(t *testing.T) {
	payload, err := DecodeProceedingPayload([]byte(`{"case":"c1","type":"ANY_OTHER","draft":true,
		"summary":"  <script>alert(1)</script>Adjourned  ",
		"anyOtherDetails":{"attendingOfficerDetails":"<b>SI</b> Singh","appearingAGDetails":"DAG","details":"Tom &amp; Jerry","officerDetails":{"name":"HC Ram"}}}`))
	require.NoError(t, err)

	assert.Equal(t, "Adjourned", payload.Summary)
	assert.Equal(t, "SI Singh", payload.AnyOtherDetails[0].AttendingOfficerDetails)
	assert.Equal(t, "Tom & Jerry", payload.AnyOtherDetails[0].Details)

	t.Run("escaped markup stays inert", func(t *testing.T) {
		payload, err := DecodeProceedingPayload([]byte(`{"case":"c1","type":"ANY_OTHER","draft":true,
			"summary":"&lt;b&gt;Listed&lt;/b&gt; again",
			"anyOtherDetails":{"attendingOfficerDetails":"SI Singh","appearingAGDetails":"DAG","details":"&lt;script&gt;alert(1)&lt;/script&gt;Noted","officerDetails":{"name":"HC Ram"}}}`))
		require.NoError(t, err)

		assert.Equal(t, "Listed again", payload.Summary)
		assert.Equal(t, "Noted", payload.AnyOtherDetails[0].Details)
		assert.NotContains(t, payload.AnyOtherDetails[0].Details, "<script")
	})
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "  Adjourned  ", "Adjourned"},
		{"tags", "<i>Heard</i> in part", "Heard in part"},
		{"entity", "Tom &amp; Jerry", "Tom & Jerry"},
		{"comparison", "2 > 1", "2 > 1"},
		{"escaped script", "&lt;script&gt;alert(1)&lt;/script&gt;", ""},
		{"double escaped tag", "&amp;lt;b&amp;gt;Bold&amp;lt;/b&amp;gt;", "Bold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeText(tt.input)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "<script")
		})
	}
}

func TestProceedingPayloadApply(t *testing.T) {
	payload, err := DecodeProceedingPayload([]byte(`{"case":"c1","type":"ARGUMENT","summary":"Heard",
		"hearingDetails":{"dateOfHearing":"2024-05-02","judgeName":"J. Sharma","courtNumber":"12"},
		"argumentDetails":[{"argumentBy":"AAG","argumentWith":"Counsel","nextDateOfHearing":"2024-06-01"}],
		"attachments":[{"fileName":"order.pdf","fileUrl":"/uploads/order.pdf"}]}`))
	require.NoError(t, err)

	var record models.Proceeding
	payload.Apply(&record)

	assert.Equal(t, models.ProceedingTypeArgument, record.Type)
	assert.False(t, record.Draft)
	assert.Equal(t, "J. Sharma", record.Hearing.JudgeName)
	require.NotNil(t, record.Hearing.DateOfHearing)
	assert.Equal(t, "2024-05-02", record.Hearing.DateOfHearing.Format(models.DateLayout))
	assert.Len(t, record.Attachments, 1)
	assert.Equal(t, 1, record.Payload.Len())
}
