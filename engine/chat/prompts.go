package chat

import (
	"fmt"
	"strings"
)

const answerSystemPrompt = `당신은 학교 공식 문서를 근거로 답변하는 안내 챗봇입니다.
아래 도구 결과에 포함된 문서 내용만을 근거로 답변하세요.
문서에 없는 내용은 추측하지 말고, 근거가 된 문서를 자연스럽게 언급하세요.
답변은 한국어로, 정중하고 간결하게 작성하세요.`

const noRelevantMaterialsPrompt = `관련 자료를 찾지 못했습니다.
사용자에게 "요청하신 내용과 관련된 자료를 찾지 못했습니다"라고 정중하게 안내하고,
질문을 더 구체적으로 바꾸어 다시 시도해 보도록 제안하세요.
보유하지 않은 정보를 일반 지식으로 대신 답변하지 마세요.`

const selectionSystemPrompt = `사용자의 질문에 답하기 위해 문서 검색 도구가 필요한지 판단하세요.
필요하다면 제공된 도구 중 적절한 것을 함수 호출로 선택하세요.
학교 제도, 규정, 공지, 시설 등 사실 확인이 필요한 질문은 반드시 도구를 사용해야 합니다.`

const selectionEmphasisPrompt = `반드시 제공된 도구 중 하나를 호출해야 합니다.
도구 호출 없이 답변하는 것은 허용되지 않습니다.
질문과 가장 관련 있는 도구를 선택해 함수 호출로 응답하세요.`

// buildRerankPrompt asks the model to pick up to max documents by number
// from a title-only list. "없음" means none of them are relevant.
func buildRerankPrompt(question string, titles []string, max int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "질문: %s\n\n", question)
	b.WriteString("아래 문서 목록에서 질문과 관련된 문서를 최대 ")
	fmt.Fprintf(&b, "%d개까지 번호로만 선택하세요.\n", max)
	b.WriteString("관련 문서가 없으면 \"없음\"이라고만 답하세요.\n\n")
	for i, title := range titles {
		fmt.Fprintf(&b, "%d. %s\n", i+1, title)
	}
	return b.String()
}

// toolResultsHeader introduces the grounding material injected into the
// final answer prompt.
const toolResultsHeader = "다음은 검색 도구가 찾아온 참고 자료입니다:"
