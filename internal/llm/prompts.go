package llm

import (
	"fmt"
	"strings"

	"charterbench/internal/charter"
)

// classifierSystemPrompt is the charter the validator enforces. The rules
// mirror the platform's contribution charter for Audierne-Esquibien.
const classifierSystemPrompt = `Tu es un modérateur qui valide des contributions citoyennes pour la commune d'Audierne-Esquibien.

Une contribution est INVALIDE si elle contient au moins une de ces violations:
- personal_attack: attaque personnelle, discrimination, mise en cause nominative
- off_topic: contenu sans rapport avec la commune (politique nationale, autre ville, sujet personnel)
- non_constructive: plainte pure sans constat ni proposition ("ça ne sert à rien", "toujours pareil")
- aggressive: ton agressif, accusateur, généralisation négative, emphase excessive
- spam: publicité, démarchage, contenu répété
- false_information: affirmation factuelle manifestement fausse

Aspects encouragés à relever quand ils sont présents:
- proposal: proposition concrète d'amélioration
- constructive_criticism: critique argumentée et respectueuse
- question: question ou demande de clarification
- expertise: expertise ou expérience partagée

Réponds UNIQUEMENT en JSON (sans markdown):
{"is_valid": true, "violations": [], "encouraged_aspects": ["proposal"], "confidence": 0.92, "reasoning": "...", "category": "economie"}

- "violations" ne liste que les tags ci-dessus.
- "category" est choisie parmi: %s. Omets le champ si aucune ne convient.
- "confidence" est entre 0 et 1.`

func buildClassifierPrompts(primaryText, secondaryText, category string) (string, string) {
	system := fmt.Sprintf(classifierSystemPrompt, strings.Join(charter.Categories, ", "))

	var user strings.Builder
	user.WriteString("Contribution à valider:\n\n")
	user.WriteString("Constat factuel:\n")
	user.WriteString(strings.TrimSpace(primaryText))
	if strings.TrimSpace(secondaryText) != "" {
		user.WriteString("\n\nProposition d'amélioration:\n")
		user.WriteString(strings.TrimSpace(secondaryText))
	}
	if category != "" {
		user.WriteString("\n\nCatégorie annoncée: " + category)
	}
	return system, user.String()
}

// rewritePrompts maps each mutation kind to its French rewrite instruction.
// The instructions deliberately differ in what they preserve: paraphrase and
// orthographic keep the meaning, the violation kinds break the charter on
// purpose to produce labeled-invalid fixtures.
var rewritePrompts = map[charter.MutationKind]string{
	charter.MutationParaphrase: `Reformule le texte suivant en gardant EXACTEMENT le même sens, mais avec des mots différents.
Le texte doit rester constructif, respectueux et pertinent pour Audierne.`,

	charter.MutationOrthographic: `Ajoute des erreurs orthographiques RÉALISTES au texte suivant:
- Lettres inversées
- Lettres manquantes ou doublées
- Accents manquants ou incorrects
- Erreurs de conjugaison courantes
Le texte doit rester lisible mais contenir 3-5 erreurs naturelles.`,

	charter.MutationSemanticShift: `Modifie le texte suivant pour changer LÉGÈREMENT le sens:
- Garde le même sujet général
- Change une ou deux propositions clés
- Le résultat doit être différent mais plausible`,

	charter.MutationSubtleViolation: `Modifie le texte suivant pour y ajouter une LÉGÈRE critique personnelle ou un ton légèrement négatif,
tout en gardant une apparence constructive. Le texte doit sembler acceptable mais contenir
une violation subtile de charte (critique implicite, ton condescendant, ou généralisation négative).`,

	charter.MutationAggressive: `Transforme le texte suivant pour le rendre agressif et non-constructif:
- Ajoute des critiques directes
- Utilise un ton accusateur
- Inclus des généralisations négatives
- Ajoute de l'emphase excessive (majuscules, ponctuation)
Le texte doit clairement violer une charte de contribution citoyenne.`,

	charter.MutationOffTopic: `Modifie le texte suivant pour le rendre hors-sujet par rapport à Audierne:
- Garde le début du texte original
- Dévie vers un sujet national ou sans rapport (politique nationale, autre ville, sujet personnel)
- Le texte doit commencer de manière pertinente puis dériver`,
}

const rewriterSystemPrompt = `Tu es un assistant qui modifie des textes en français pour générer des jeux de test.
Réponds UNIQUEMENT avec le texte transformé, sans explication, sans guillemets, sans markdown.`

func buildRewritePrompts(text string, kind charter.MutationKind) (string, string, error) {
	instruction, ok := rewritePrompts[kind]
	if !ok {
		return "", "", fmt.Errorf("no rewrite prompt for mutation kind %q", kind)
	}
	user := instruction + "\n\nTexte original:\n" + text
	return rewriterSystemPrompt, user, nil
}
