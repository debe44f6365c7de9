package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detailDoc = `
<div class="mb-8 flex flex-wrap">
	<span>2026.08.21 등록</span>
	<div class="flex gap-x-0.5"><svg></svg>조회수 1,234</div>
</div>
<div class="grid">
	<div>근무시작일</div><div>2026.09.01</div>
	<div>근무지역</div><div>서울 강남구</div>
	<div>급여지급일</div><div>말일</div>
	<div>보유스킬</div><div>Go, PostgreSQL, Docker</div>
</div>
<div class="my-5">
	<p>계약직 백엔드 포지션입니다.</p>
	<p></p>
	<p>3개월 프로젝트, 연장 가능.</p>
</div>
<div class="mb-9">
	<div class="flex items-center gap-x-3">김담당</div>
	<div class="flex items-center gap-x-3">010-1234-5678</div>
	<div class="flex items-center gap-x-3">hr@example.com</div>
</div>`

func TestExtractDetail(t *testing.T) {
	t.Parallel()
	link := "https://jobs.okky.kr/recruits/101"
	detail, contact := NewDetailExtractor().Extract(parseDoc(t, detailDoc), link)

	assert.Equal(t, link, detail.Link)
	assert.Equal(t, "2026.08.21 등록", detail.RegisteredAt)
	assert.Equal(t, int64(1234), detail.ViewCount)
	assert.Equal(t, "2026.09.01", detail.StartDate)
	assert.Equal(t, "서울 강남구", detail.WorkLocation)
	assert.Equal(t, "말일", detail.PayDate)
	assert.Equal(t, "Go, PostgreSQL, Docker", detail.Skill)
	assert.Equal(t, "계약직 백엔드 포지션입니다.\n3개월 프로젝트, 연장 가능.", detail.Description)

	require.False(t, contact.Empty())
	assert.Equal(t, "김담당", contact.Name)
	assert.Equal(t, "010-1234-5678", contact.Phone)
	assert.Equal(t, "hr@example.com", contact.Email)
}

func TestExtractDetailPartialContact(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, `
		<div class="mb-9">
			<div class="flex items-center gap-x-3">김담당</div>
		</div>`)
	_, contact := NewDetailExtractor().Extract(doc, "https://jobs.okky.kr/recruits/1")
	assert.Equal(t, "김담당", contact.Name)
	assert.Empty(t, contact.Phone)
	assert.Empty(t, contact.Email)
}

func TestExtractDetailEmptyDocument(t *testing.T) {
	t.Parallel()
	detail, contact := NewDetailExtractor().Extract(parseDoc(t, "<div></div>"), "https://jobs.okky.kr/recruits/1")
	assert.Zero(t, detail.ViewCount)
	assert.Empty(t, detail.Description)
	assert.Empty(t, detail.Skill)
	assert.True(t, contact.Empty())
}

func TestViewCountFallsBackToZero(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, `
		<div class="mb-8 flex flex-wrap">
			<span>2026.08.21</span>
			<div class="flex gap-x-0.5">조회수 없음</div>
		</div>`)
	detail, _ := NewDetailExtractor().Extract(doc, "https://jobs.okky.kr/recruits/1")
	assert.Zero(t, detail.ViewCount)
}
