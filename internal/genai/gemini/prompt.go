package gemini

import "google.golang.org/genai"

const (
	sceneLabel     = "This is the Scene Image to modify:"
	referenceLabel = "This is the Reference Dog Image:"
)

// 固定指令：保留第一张图的构图，只替换主体
const swapInstruction = `
Instructions:
1. Look at the first image (the composition/scene). It contains dogs in a lavender field with butterflies and a pink background.
2. Look at the second image (the reference dog).
3. Create a NEW image that looks EXACTLY like the first image in terms of layout, background color, lavender flowers, and butterfly placement.
4. However, replace the dogs in the first image with the specific dog breed/appearance from the second image.
5. The new dogs should be in similar poses and positions as the original dogs to maintain the composition.
6. Do not change the pink background or the floral arrangement.
`

// buildParts 请求内容顺序：场景图、场景标签、参考图、参考标签、指令
func buildParts(scene, reference *genai.Part) []*genai.Part {
	return []*genai.Part{
		scene,
		genai.NewPartFromText(sceneLabel),
		reference,
		genai.NewPartFromText(referenceLabel),
		genai.NewPartFromText(swapInstruction),
	}
}
